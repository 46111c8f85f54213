package track

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/halfmoor/go-screentime-monitor/internal/core/constants"
	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
	"github.com/halfmoor/go-screentime-monitor/internal/data/eventlog"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

// Effects funnels event-log appends through a bounded queue so a slow
// persistence layer can never stall foreground tracking. The hot loop
// only ever calls Enqueue; a single worker drains the queue and retries
// transient append failures with backoff.
type Effects struct {
	log   eventlog.Log
	queue chan event.TimelineEvent
	done  chan struct{}
}

func NewEffects(log eventlog.Log) *Effects {
	return &Effects{
		log:   log,
		queue: make(chan event.TimelineEvent, constants.EffectQueueSize),
		done:  make(chan struct{}),
	}
}

// Enqueue hands an event to the persistence worker. It waits at most
// the enqueue timeout for queue space, then drops with a warning: a
// lost event is recoverable noise, a blocked tracking loop is not.
func (e *Effects) Enqueue(ev event.TimelineEvent) bool {
	select {
	case e.queue <- ev:
		return true
	default:
	}

	timer := time.NewTimer(constants.EffectEnqueueTimeout)
	defer timer.Stop()
	select {
	case e.queue <- ev:
		return true
	case <-timer.C:
		util.LogWarnf("effects: queue full, dropped %s event at %d", ev.Kind(), ev.Timestamp)
		return false
	}
}

// Run drains the queue until ctx ends. Queued events still pending at
// cancellation are abandoned; the projector tolerates the resulting
// gaps.
func (e *Effects) Run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.queue:
			e.append(ctx, ev)
		}
	}
}

// Done is closed when the worker has exited.
func (e *Effects) Done() <-chan struct{} {
	return e.done
}

func (e *Effects) append(ctx context.Context, ev event.TimelineEvent) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = constants.EffectAppendTimeout

	op := func() error {
		appendCtx, cancel := context.WithTimeout(ctx, constants.EffectAppendTimeout)
		defer cancel()
		_, err := e.log.Append(appendCtx, ev)
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		if ctx.Err() == nil {
			util.LogErrorf("effects: giving up on %s event at %d: %v", ev.Kind(), ev.Timestamp, err)
		}
	}
}
