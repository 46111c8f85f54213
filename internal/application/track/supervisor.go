package track

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/halfmoor/go-screentime-monitor/internal/core/constants"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

// stableRunThreshold: a run surviving this long resets the backoff, so
// a crash after hours of healthy tracking restarts quickly instead of
// inheriting an old penalty.
const stableRunThreshold = 5 * time.Minute

// RunWithRestart runs fn until it returns nil or ctx ends. Errors and
// panics trigger a restart with exponential backoff. fn must leave no
// partial state behind on error; the orchestrator's Run rebuilds
// everything from the event log on entry, which makes restarts
// idempotent.
func RunWithRestart(ctx context.Context, name string, fn func(context.Context) error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = constants.RestartInitialBackoff
	policy.MaxInterval = constants.RestartMaxBackoff
	policy.MaxElapsedTime = 0 // never give up

	for {
		started := time.Now()
		err := runRecovered(ctx, fn)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			util.LogInfof("%s: exited cleanly", name)
			return
		}

		if time.Since(started) >= stableRunThreshold {
			policy.Reset()
		}
		wait := policy.NextBackOff()
		util.LogErrorf("%s: terminated: %v; restarting in %s", name, err, wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

func runRecovered(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}
