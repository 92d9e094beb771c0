package scheduler

import (
	"context"
	"sync/atomic"
)

// Signal is a level-triggered cancellation flag. Once raised it stays raised.
// The zero value is ready to use.
type Signal struct {
	cancelled atomic.Bool
}

// NewSignal creates a Signal that is not cancelled.
func NewSignal() *Signal {
	return &Signal{}
}

// Cancel raises the flag.
func (s *Signal) Cancel() {
	s.cancelled.Store(true)
}

// IsCancelled reports whether Cancel has been called.
func (s *Signal) IsCancelled() bool {
	return s.cancelled.Load()
}

// CancelOnDone raises the flag when ctx is done. The returned function
// stops watching ctx without raising the flag.
func (s *Signal) CancelOnDone(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.Cancel()
		case <-done:
		}
	}()

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			close(done)
		}
	}
}
