// Package suggestion decides when to interrupt the user with a
// take-a-break prompt. The gate is stateful per session: thresholds
// come from settings, cooldown progress is measured in accumulated
// usage time rather than wall clock, and a disable latches until the
// session ends.
package suggestion

import (
	"sync"

	"github.com/google/uuid"

	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
	"github.com/halfmoor/go-screentime-monitor/internal/core/session"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

// Config holds the gate thresholds.
type Config struct {
	// TriggerThresholdMillis is the minimum session elapsed time before
	// any suggestion is considered.
	TriggerThresholdMillis int64
	// StableThresholdMillis is the minimum time the package must have
	// been continuously foreground, so rapid app-switch flapping never
	// triggers a prompt.
	StableThresholdMillis int64
	// CooldownMillis is the minimum additional usage time after a
	// decision before the next suggestion.
	CooldownMillis int64
}

// Gate tracks suggestion state for the current session.
type Gate struct {
	mu sync.Mutex

	cfg Config

	shown   bool
	shownID string

	hasLastDecision           bool
	lastDecisionElapsedMillis int64

	disabledForSession bool
}

func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// SetConfig replaces the thresholds; accumulated decision state is kept.
func (g *Gate) SetConfig(cfg Config) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
}

// ShouldShow reports whether a suggestion is due given the session's
// elapsed time and the time the package has been stably foreground.
func (g *Gate) ShouldShow(elapsedMillis, sinceForegroundMillis int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.shown || g.disabledForSession {
		return false
	}
	if elapsedMillis < g.cfg.TriggerThresholdMillis {
		return false
	}
	if sinceForegroundMillis < g.cfg.StableThresholdMillis {
		return false
	}
	if !g.hasLastDecision {
		return true
	}
	return elapsedMillis-g.lastDecisionElapsedMillis >= g.cfg.CooldownMillis
}

// BeginShow marks a suggestion as in flight and returns its id. It
// fails (returns "", false) if one is already showing, so two ticks can
// never race a double prompt.
func (g *Gate) BeginShow() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.shown || g.disabledForSession {
		return "", false
	}
	g.shown = true
	g.shownID = uuid.NewString()
	return g.shownID, true
}

// RecordDecision applies the user's response to the suggestion with the
// given id. elapsedMillis is the session elapsed time at decision time
// and anchors the next cooldown. Decisions for a stale id are dropped.
func (g *Gate) RecordDecision(id string, d event.Decision, elapsedMillis int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.shown || id != g.shownID {
		util.LogWarnf("suggestion: decision %s for stale id %s ignored", d, id)
		return false
	}
	g.shown = false
	g.shownID = ""
	g.hasLastDecision = true
	g.lastDecisionElapsedMillis = elapsedMillis
	if d == event.DecisionDisabledForSession {
		g.disabledForSession = true
	}
	return true
}

// AbortShow withdraws an in-flight suggestion without recording a
// decision: the prompt disappeared for external reasons (app left,
// screen off), not because the user answered it. The cooldown anchor is
// untouched.
func (g *Gate) AbortShow(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.shown || id != g.shownID {
		return
	}
	g.shown = false
	g.shownID = ""
}

// IsShowing reports whether a suggestion is currently up.
func (g *Gate) IsShowing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shown
}

// DisabledForSession reports whether the user opted out for the rest of
// the session.
func (g *Gate) DisabledForSession() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disabledForSession
}

// ResetForNewSession clears all per-session state.
func (g *Gate) ResetForNewSession() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.shown = false
	g.shownID = ""
	g.hasLastDecision = false
	g.lastDecisionElapsedMillis = 0
	g.disabledForSession = false
}

// BootstrapFromSession rebuilds gate state after a restart by replaying
// the suggestion sub-events of a still-open session. A shown suggestion
// whose decision never arrived counts as a decision point: the prompt
// died with the old process, and re-showing it immediately would feel
// like nagging.
func (g *Gate) BootstrapFromSession(s *session.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.shown = false
	g.shownID = ""
	g.hasLastDecision = false
	g.lastDecisionElapsedMillis = 0
	g.disabledForSession = false

	if s == nil {
		return
	}
	for _, ev := range s.Events {
		switch ev.Kind {
		case session.EventSuggestionShown,
			session.EventSuggestionSnoozed,
			session.EventSuggestionDismissed:
			g.hasLastDecision = true
			g.lastDecisionElapsedMillis = elapsedAt(s, ev.Timestamp)
		case session.EventSuggestionDisabledForSession:
			g.hasLastDecision = true
			g.lastDecisionElapsedMillis = elapsedAt(s, ev.Timestamp)
			g.disabledForSession = true
		}
	}
	if g.hasLastDecision || g.disabledForSession {
		util.LogDebugf("suggestion: gate restored from session %s (disabled=%v, anchor=%dms)",
			s.PackageName, g.disabledForSession, g.lastDecisionElapsedMillis)
	}
}

// elapsedAt returns the session's active elapsed time at ts, counting
// only lifecycle sub-events up to that point.
func elapsedAt(s *session.Session, ts int64) int64 {
	var lifecycle []session.SessionEvent
	for _, ev := range s.Events {
		if ev.Timestamp > ts {
			break
		}
		switch ev.Kind {
		case session.EventStart, session.EventEnd, session.EventPause, session.EventResume:
			lifecycle = append(lifecycle, ev)
		}
	}
	return session.CalculateDurationMillis(lifecycle, ts)
}
