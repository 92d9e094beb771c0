package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal(t *testing.T) {
	var zero Signal
	assert.False(t, zero.IsCancelled())

	s := NewSignal()
	assert.False(t, s.IsCancelled())
	s.Cancel()
	assert.True(t, s.IsCancelled())
	s.Cancel()
	assert.True(t, s.IsCancelled(), "cancellation is level-triggered")
}

func TestSignal_ConcurrentCancel(t *testing.T) {
	s := NewSignal()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Cancel()
			_ = s.IsCancelled()
		}()
	}
	wg.Wait()
	assert.True(t, s.IsCancelled())
}

func TestSignal_CancelOnDone(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithCancel(context.Background())
	stop := s.CancelOnDone(ctx)
	defer stop()

	assert.False(t, s.IsCancelled())
	cancel()
	require.Eventually(t, s.IsCancelled, time.Second, time.Millisecond)
}

func TestSignal_CancelOnDoneStopped(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithCancel(context.Background())
	stop := s.CancelOnDone(ctx)

	stop()
	stop() // idempotent
	cancel()

	time.Sleep(10 * time.Millisecond)
	assert.False(t, s.IsCancelled())
}
