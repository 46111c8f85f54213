package track

import (
	"context"
	"errors"
	"fmt"

	"github.com/halfmoor/go-screentime-monitor/internal/core/constants"
	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
	"github.com/halfmoor/go-screentime-monitor/internal/core/session"
	"github.com/halfmoor/go-screentime-monitor/internal/data/eventlog"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

// bootstrapState is what the orchestrator recovers from the event log
// before entering the loop.
type bootstrapState struct {
	screenOn bool
	// seedElapsed holds per-package elapsed millis of still-open
	// sessions; consumed on the first enter so the session resumes
	// instead of restarting at zero.
	seedElapsed map[string]int64
	// seedAnchor holds the last moment each seeded session was observed
	// active. A seed is only valid while the grace window measured from
	// its anchor has not lapsed.
	seedAnchor map[string]int64
	// openSession is the most recent still-open session, used to replay
	// suggestion sub-events into the gate.
	openSession *session.Session
}

// bootstrap reconstructs runtime state after a restart without scanning
// the whole log: point lookups seed screen state, one bounded window
// projection seeds open sessions and the gate.
func bootstrap(ctx context.Context, log eventlog.Log, targets []string, graceMillis, nowMillis int64) (*bootstrapState, error) {
	bs := &bootstrapState{
		screenOn:    true,
		seedElapsed: make(map[string]int64),
		seedAnchor:  make(map[string]int64),
	}

	if screenEv, err := log.LatestOfKindBefore(ctx, event.KindScreen, nowMillis); err == nil {
		if p, ok := screenEv.Payload.(event.ScreenPayload); ok {
			bs.screenOn = p.State == event.ScreenOn
		}
	} else if !errors.Is(err, eventlog.ErrNotFound) {
		return nil, fmt.Errorf("failed to seed screen state: %w", err)
	}

	events, err := log.Query(ctx, nowMillis-constants.BootstrapLookbackMillis, nowMillis)
	if err != nil {
		return nil, fmt.Errorf("failed to load bootstrap window: %w", err)
	}

	sessions := session.Project(session.ProjectionInput{
		Events:            events,
		TargetPackages:    targets,
		GracePeriodMillis: graceMillis,
		NowMillis:         nowMillis,
	})

	// Last raw foreground confirmation per package. A session can stay
	// open across a long sampling gap (the service died mid-session), so
	// the projection alone cannot say when the package was last seen.
	lastSeen := make(map[string]int64)
	for _, ev := range events {
		if p, ok := ev.Payload.(event.ForegroundAppPayload); ok {
			lastSeen[p.PackageName] = ev.Timestamp
		}
	}

	for _, s := range sessions {
		if !s.IsOpen() {
			continue
		}
		anchor := s.Events[len(s.Events)-1].Timestamp
		if seen := lastSeen[s.PackageName]; seen > anchor {
			anchor = seen
		}
		// Clip at the anchor so downtime between the last confirmation
		// and this restart never counts as usage.
		bs.seedElapsed[s.PackageName] = session.CalculateDurationMillis(s.Events, anchor)
		bs.seedAnchor[s.PackageName] = anchor
		if bs.openSession == nil || s.StartTime() > bs.openSession.StartTime() {
			bs.openSession = s
		}
	}

	if len(bs.seedElapsed) > 0 {
		util.LogInfof("bootstrap: resuming %d open session(s)", len(bs.seedElapsed))
	}
	return bs, nil
}
