package track

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunWithRestartExitsOnNil(t *testing.T) {
	var runs int32
	RunWithRestart(context.Background(), "test", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestRunWithRestartRecoversPanic(t *testing.T) {
	var runs int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunWithRestart(context.Background(), "test", func(ctx context.Context) error {
			if atomic.AddInt32(&runs, 1) == 1 {
				panic("boom")
			}
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("supervisor did not restart after panic")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
}

func TestRunWithRestartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunWithRestart(ctx, "test", func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			if atomic.LoadInt32(&runs) == 1 {
				cancel()
			}
			return errors.New("keep restarting")
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor ignored cancellation")
	}
	// The failing run that observed cancellation must not be retried.
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}
