package scheduler

import (
	"golang.org/x/sync/errgroup"
)

// Executor runs the work for one package. The scheduler waits for each
// task to finish before submitting the next one.
type Executor interface {
	Go(task func())
}

// InlineExecutor runs tasks on the calling goroutine.
type InlineExecutor struct{}

// Go runs task and returns when it is done.
func (InlineExecutor) Go(task func()) {
	task()
}

// PoolExecutor runs tasks on a bounded set of goroutines. It may be shared
// by several schedulers; each scheduler still runs its packages one at a time.
type PoolExecutor struct {
	group errgroup.Group
}

// NewPoolExecutor creates a pool running at most workers tasks at once.
// workers <= 0 means no limit.
func NewPoolExecutor(workers int) *PoolExecutor {
	p := &PoolExecutor{}
	if workers > 0 {
		p.group.SetLimit(workers)
	}
	return p
}

// Go submits task, blocking while the pool is full.
func (p *PoolExecutor) Go(task func()) {
	p.group.Go(func() error {
		task()
		return nil
	})
}

// Wait blocks until every submitted task has returned.
func (p *PoolExecutor) Wait() {
	_ = p.group.Wait()
}
