package track

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
	"github.com/halfmoor/go-screentime-monitor/internal/data/eventlog"
)

// flakyLog fails the first failures appends, then delegates.
type flakyLog struct {
	eventlog.Log
	mu       sync.Mutex
	failures int
	attempts int
}

func (f *flakyLog) Append(ctx context.Context, ev event.TimelineEvent) (int64, error) {
	f.mu.Lock()
	f.attempts++
	fail := f.attempts <= f.failures
	f.mu.Unlock()
	if fail {
		return 0, errors.New("disk hiccup")
	}
	return f.Log.Append(ctx, ev)
}

func waitForCount(t *testing.T, log eventlog.Log, want int) []event.TimelineEvent {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		evs, err := log.Query(context.Background(), 0, 1<<62)
		require.NoError(t, err)
		if len(evs) >= want {
			return evs
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("log never reached %d events", want)
	return nil
}

func TestEffectsPersistsInOrder(t *testing.T) {
	log := eventlog.NewMemoryLog()
	fx := NewEffects(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fx.Run(ctx)

	for i := int64(1); i <= 5; i++ {
		ok := fx.Enqueue(event.TimelineEvent{
			Timestamp: i * 1000,
			Payload:   event.ForegroundAppPayload{PackageName: "com.example.app"},
		})
		assert.True(t, ok)
	}

	evs := waitForCount(t, log, 5)
	for i, ev := range evs {
		assert.Equal(t, int64(i+1)*1000, ev.Timestamp)
	}

	cancel()
	select {
	case <-fx.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestEffectsRetriesTransientFailures(t *testing.T) {
	flaky := &flakyLog{Log: eventlog.NewMemoryLog(), failures: 2}
	fx := NewEffects(flaky)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fx.Run(ctx)

	require.True(t, fx.Enqueue(event.TimelineEvent{
		Timestamp: 1000,
		Payload:   event.ScreenPayload{State: event.ScreenOff},
	}))

	evs := waitForCount(t, flaky.Log, 1)
	assert.Equal(t, event.KindScreen, evs[0].Kind())

	flaky.mu.Lock()
	attempts := flaky.attempts
	flaky.mu.Unlock()
	assert.GreaterOrEqual(t, attempts, 3)
}

func TestEffectsDropsWhenQueueStaysFull(t *testing.T) {
	// No worker running: the queue fills and the overflow enqueue must
	// time out instead of blocking forever.
	fx := NewEffects(eventlog.NewMemoryLog())

	for i := 0; i < cap(fx.queue); i++ {
		require.True(t, fx.Enqueue(event.TimelineEvent{
			Timestamp: int64(i),
			Payload:   event.ScreenPayload{State: event.ScreenOn},
		}))
	}

	start := time.Now()
	ok := fx.Enqueue(event.TimelineEvent{
		Timestamp: 999999,
		Payload:   event.ScreenPayload{State: event.ScreenOn},
	})
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}
