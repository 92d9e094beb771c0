package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocalGuard is an in-process exclusive guard for runs that do not share
// a registry database with other instances.
type LocalGuard struct {
	sem         chan struct{}
	mu          sync.Mutex
	attribution string
}

// NewLocalGuard creates an unheld LocalGuard.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{sem: make(chan struct{}, 1)}
}

// SetAttribution records who the guard is held on behalf of.
func (g *LocalGuard) SetAttribution(source string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attribution = source
}

// Attribution returns the last recorded work source.
func (g *LocalGuard) Attribution() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attribution
}

// Acquire waits up to timeout for the guard. A negative timeout waits until ctx is done.
func (g *LocalGuard) Acquire(ctx context.Context, timeout time.Duration) error {
	select {
	case g.sem <- struct{}{}:
		return nil
	default:
	}
	if timeout == 0 {
		return fmt.Errorf("%w: local guard is held", ErrLockTimeout)
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case g.sem <- struct{}{}:
		return nil
	case <-expired:
		return fmt.Errorf("%w: local guard is held", ErrLockTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the guard.
func (g *LocalGuard) Release() error {
	select {
	case <-g.sem:
		return nil
	default:
		return fmt.Errorf("%w: local guard", ErrNotHeld)
	}
}
