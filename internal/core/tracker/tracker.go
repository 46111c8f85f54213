package tracker

import (
	"sync"

	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

// packageState mirrors a single session's elapsed time without touching
// the event log. Exactly one of active / leave-marked / ui-paused holds
// at a time; accumulated only grows.
type packageState struct {
	accumulated int64  // millis folded in up to the last pause/leave
	activeStart int64  // start of the currently counting interval
	stableStart int64  // foreground-stable anchor for flap detection
	uiPause     *int64 // set while an interruptive overlay is shown
	lastLeave   *int64 // set while leave-marked
}

// RuntimeTracker is the in-process per-package elapsed-time accumulator.
// It is seeded by the projector at session start and advanced through
// its methods only; no operation reads the event log. All methods are
// O(1) against an in-memory map and take the caller's sampled "now" so
// one orchestrator tick sees one consistent clock value.
type RuntimeTracker struct {
	mu     sync.Mutex
	states map[string]*packageState
}

func NewRuntimeTracker() *RuntimeTracker {
	return &RuntimeTracker{
		states: make(map[string]*packageState),
	}
}

// OnEnterTargetApp registers pkg becoming foreground. With no prior
// state a new session starts seeded with seedElapsedMillis and the
// return value is true. With prior leave-marked state, a gap within the
// grace period resumes the same accumulation (false); a longer gap
// resets to a fresh session (true).
func (rt *RuntimeTracker) OnEnterTargetApp(pkg string, nowMillis, gracePeriodMillis, seedElapsedMillis int64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	st, ok := rt.states[pkg]
	if !ok {
		rt.states[pkg] = &packageState{
			accumulated: seedElapsedMillis,
			activeStart: nowMillis,
			stableStart: nowMillis,
		}
		util.LogDebugf("tracker: new session for %s seeded with %dms", pkg, seedElapsedMillis)
		return true
	}

	if st.lastLeave != nil && nowMillis-*st.lastLeave <= gracePeriodMillis {
		st.lastLeave = nil
		st.activeStart = nowMillis
		st.stableStart = nowMillis
		util.LogDebugf("tracker: %s resumed within grace, accumulated=%dms", pkg, st.accumulated)
		return false
	}

	// Stale state: either the grace window lapsed without a cleanup or
	// an enter arrived while already active after a restart. Start over.
	st.accumulated = 0
	st.activeStart = nowMillis
	st.stableStart = nowMillis
	st.uiPause = nil
	st.lastLeave = nil
	util.LogDebugf("tracker: %s restarted session, accumulation reset", pkg)
	return true
}

// OnLeaveTargetApp folds the current active interval into the
// accumulation and stamps the leave. Idempotent: a second leave without
// an intervening enter is a no-op.
func (rt *RuntimeTracker) OnLeaveTargetApp(pkg string, nowMillis int64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	st, ok := rt.states[pkg]
	if !ok || st.lastLeave != nil {
		return
	}
	if st.uiPause == nil && nowMillis > st.activeStart {
		st.accumulated += nowMillis - st.activeStart
	}
	st.uiPause = nil
	leave := nowMillis
	st.lastLeave = &leave
}

// OnUIPause freezes accumulation while an interruptive overlay is shown
// so UI dwell time is not counted as usage.
func (rt *RuntimeTracker) OnUIPause(pkg string, nowMillis int64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	st, ok := rt.states[pkg]
	if !ok || st.uiPause != nil || st.lastLeave != nil {
		return
	}
	if nowMillis > st.activeStart {
		st.accumulated += nowMillis - st.activeStart
	}
	pause := nowMillis
	st.uiPause = &pause
}

// OnUIResume resumes counting from the resume timestamp.
func (rt *RuntimeTracker) OnUIResume(pkg string, nowMillis int64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	st, ok := rt.states[pkg]
	if !ok || st.uiPause == nil {
		return
	}
	st.uiPause = nil
	st.activeStart = nowMillis
}

// OnForegroundReconfirmed handles the platform re-reporting the same
// package as foreground without an intervening leave. Only the
// stability anchor resets; the accumulated elapsed time never does.
func (rt *RuntimeTracker) OnForegroundReconfirmed(pkg string, nowMillis int64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	st, ok := rt.states[pkg]
	if !ok || st.lastLeave != nil {
		return
	}
	st.stableStart = nowMillis
}

// ComputeElapsedFor returns the session's elapsed millis at nowMillis,
// or false if pkg has no tracked session. While leave-marked or
// UI-paused the value is frozen at the accumulation.
func (rt *RuntimeTracker) ComputeElapsedFor(pkg string, nowMillis int64) (int64, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	st, ok := rt.states[pkg]
	if !ok {
		return 0, false
	}
	if st.lastLeave != nil || st.uiPause != nil {
		return st.accumulated, true
	}
	elapsed := st.accumulated
	if nowMillis > st.activeStart {
		elapsed += nowMillis - st.activeStart
	}
	return elapsed, true
}

// SinceForegroundMillis returns how long pkg has been stably foreground,
// capped at the UI-pause timestamp while paused. Used by the suggestion
// gate to suppress prompts during rapid app-switch flapping.
func (rt *RuntimeTracker) SinceForegroundMillis(pkg string, nowMillis int64) (int64, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	st, ok := rt.states[pkg]
	if !ok || st.lastLeave != nil {
		return 0, false
	}
	ref := nowMillis
	if st.uiPause != nil && *st.uiPause < ref {
		ref = *st.uiPause
	}
	if ref < st.stableStart {
		return 0, true
	}
	return ref - st.stableStart, true
}

// IsLeaveMarked reports whether pkg is in the grace window after a
// leave.
func (rt *RuntimeTracker) IsLeaveMarked(pkg string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	st, ok := rt.states[pkg]
	return ok && st.lastLeave != nil
}

// LastLeaveMillis returns the leave timestamp for pkg, if leave-marked.
func (rt *RuntimeTracker) LastLeaveMillis(pkg string) (int64, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	st, ok := rt.states[pkg]
	if !ok || st.lastLeave == nil {
		return 0, false
	}
	return *st.lastLeave, true
}

// ClearSession drops the tracked state for pkg (overlay disabled,
// grace-period change, data reset).
func (rt *RuntimeTracker) ClearSession(pkg string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.states, pkg)
}

// ClearAll drops every tracked session.
func (rt *RuntimeTracker) ClearAll() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.states = make(map[string]*packageState)
}

// TrackedPackages returns the packages with live state, in no
// particular order.
func (rt *RuntimeTracker) TrackedPackages() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	pkgs := make([]string, 0, len(rt.states))
	for pkg := range rt.states {
		pkgs = append(pkgs, pkg)
	}
	return pkgs
}
