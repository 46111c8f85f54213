// Package track hosts the foreground tracking orchestrator: the
// supervising loop that ties the sampler, the overlay reducer, the
// runtime tracker, the daily cache and the suggestion gate together.
package track

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
	"github.com/halfmoor/go-screentime-monitor/internal/core/overlay"
	"github.com/halfmoor/go-screentime-monitor/internal/core/suggestion"
	"github.com/halfmoor/go-screentime-monitor/internal/core/tracker"
	"github.com/halfmoor/go-screentime-monitor/internal/core/usage"
	"github.com/halfmoor/go-screentime-monitor/internal/data/sampler"
	"github.com/halfmoor/go-screentime-monitor/internal/data/settings"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

// Orchestrator owns all mutable tracking state. Everything below the
// cross-thread collaborators (tracker, cache, gate, state manager,
// effects) is touched only from the Run loop's goroutine; external
// callers reach the loop through channels or the thread-safe
// collaborators, never by mutating fields.
type Orchestrator struct {
	cfg Config
	now func() int64

	settings *settings.Source
	effects  *Effects
	tracker  *tracker.RuntimeTracker
	cache    *usage.Cache
	gate     *suggestion.Gate
	state    *StateManager

	// Loop-owned state.
	runCtx         context.Context
	overlayState   overlay.State
	activePkg      string
	lastGeneration uint64
	screenOn       bool
	dayStart       int64
	nextDayStart   int64
	targets        map[string]bool
	targetList     []string
	graceMillis    int64
	pollInterval   time.Duration
	overlayEnabled bool
	suggestionPkg  string
	suggestionID   string
	seedElapsed    map[string]int64
	seedAnchor     map[string]int64
	gateSeededPkg  string

	decisionCh chan event.Decision
	screenCh   chan bool
}

// NewOrchestrator creates an Orchestrator instance.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st := cfg.Settings.Current()
	return &Orchestrator{
		cfg:      cfg,
		now:      cfg.clock(),
		settings: cfg.Settings,
		effects:  NewEffects(cfg.Log),
		tracker:  tracker.NewRuntimeTracker(),
		cache:    usage.NewCache(cfg.Log, usage.DefaultConfig()),
		gate: suggestion.NewGate(suggestion.Config{
			TriggerThresholdMillis: st.Suggestion.TriggerThresholdMillis,
			StableThresholdMillis:  st.Suggestion.StableThresholdMillis,
			CooldownMillis:         st.Suggestion.CooldownMillis,
		}),
		state:      NewStateManager(),
		screenOn:   true,
		decisionCh: make(chan event.Decision, 4),
		screenCh:   make(chan bool, 4),
	}, nil
}

// Run executes the tracking loop until ctx ends, the sampler is
// exhausted, or an unrecoverable initialization error occurs. It is
// safe to call again after an error return; all runtime state is
// rebuilt from the event log on entry, and each entry gets its own
// effects worker so a supervised restart never leaves two workers
// draining one queue.
func (o *Orchestrator) Run(ctx context.Context) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	o.runCtx = runCtx
	now := o.now()

	o.resetLoopState(o.settings.Current(), now)

	bs, err := bootstrap(ctx, o.cfg.Log, o.targetList, o.graceMillis, now)
	if err != nil {
		return err
	}
	o.screenOn = bs.screenOn
	o.seedElapsed = bs.seedElapsed
	o.seedAnchor = bs.seedAnchor
	o.gate.BootstrapFromSession(bs.openSession)
	if bs.openSession != nil {
		o.gateSeededPkg = bs.openSession.PackageName
	}

	o.effects = NewEffects(o.cfg.Log)
	go o.effects.Run(runCtx)
	o.effects.Enqueue(event.TimelineEvent{
		Timestamp: now,
		Payload:   event.ServiceLifecyclePayload{State: event.ServiceStarted},
	})

	o.cache.RequestRefresh(runCtx, o.cacheParams(now), true)

	samples, err := o.cfg.Sampler.Start(runCtx)
	if err != nil {
		return fmt.Errorf("failed to start sampler: %w", err)
	}

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()
	defer o.cleanup()

	util.LogInfof("track: loop started, %d target(s), grace=%dms", len(o.targetList), o.graceMillis)
	o.publishView(now)

	for {
		select {
		case <-ctx.Done():
			util.LogInfo("track: shutting down")
			return nil

		case s, ok := <-samples:
			if !ok {
				util.LogInfo("track: sample source exhausted")
				return nil
			}
			o.handleSample(s)

		case <-ticker.C:
			o.handleTick(o.now())

		case ns := <-o.settings.Changes():
			o.applySettings(ns, o.now())
			ticker.Reset(o.pollInterval)

		case d := <-o.decisionCh:
			o.handleDecision(d, o.now())

		case on := <-o.screenCh:
			o.handleScreen(on, o.now())
		}
	}
}

// resetLoopState initializes loop-owned fields from settings. Called on
// every Run entry so supervisor restarts never inherit stale state.
func (o *Orchestrator) resetLoopState(st *settings.Settings, now int64) {
	o.overlayState = overlay.Idle
	o.activePkg = ""
	o.lastGeneration = 0
	o.screenOn = true
	o.suggestionPkg = ""
	o.suggestionID = ""
	o.gateSeededPkg = ""
	o.seedElapsed = make(map[string]int64)
	o.seedAnchor = make(map[string]int64)
	o.tracker.ClearAll()

	o.applySettingsFields(st)
	if !o.overlayEnabled {
		o.overlayState = overlay.State{Kind: overlay.KindDisabled}
	}

	tp := util.GetTimeProvider()
	o.dayStart = tp.DayStartMillis(now)
	o.nextDayStart = tp.NextDayStartMillis(now)
}

func (o *Orchestrator) applySettingsFields(st *settings.Settings) {
	o.graceMillis = st.Tracking.GracePeriodMillis
	o.pollInterval = time.Duration(st.Tracking.PollIntervalMillis) * time.Millisecond
	o.overlayEnabled = st.Overlay.Enabled

	o.targets = make(map[string]bool, len(st.Tracking.TargetPackages))
	for _, pkg := range st.Tracking.TargetPackages {
		o.targets[pkg] = true
	}
	o.targetList = append([]string(nil), st.Tracking.TargetPackages...)
	sort.Strings(o.targetList)

	o.gate.SetConfig(suggestion.Config{
		TriggerThresholdMillis: st.Suggestion.TriggerThresholdMillis,
		StableThresholdMillis:  st.Suggestion.StableThresholdMillis,
		CooldownMillis:         st.Suggestion.CooldownMillis,
	})
}

func (o *Orchestrator) isTarget(pkg string) bool {
	return pkg != "" && o.targets[pkg]
}

// handleSample applies one foreground observation. Samples must be
// handled in arrival order; the change is recorded before transitions
// are evaluated.
func (o *Orchestrator) handleSample(s sampler.Sample) {
	ts := s.AtMillis

	if s.PackageName == o.activePkg {
		// Reconfirmation of the same package: only the stability anchor
		// moves, never the elapsed time.
		if o.isTarget(o.activePkg) && s.Generation != o.lastGeneration {
			o.tracker.OnForegroundReconfirmed(o.activePkg, ts)
		}
		o.lastGeneration = s.Generation
		return
	}

	o.effects.Enqueue(event.TimelineEvent{
		Timestamp: ts,
		Payload:   event.ForegroundAppPayload{PackageName: s.PackageName},
	})

	prev := o.activePkg
	o.activePkg = s.PackageName
	o.lastGeneration = s.Generation

	if o.isTarget(prev) {
		o.leaveTarget(prev, ts)
	}
	if o.screenOn && o.isTarget(s.PackageName) {
		o.enterTarget(s.PackageName, ts)
	}
	o.publishView(ts)
}

func (o *Orchestrator) enterTarget(pkg string, ts int64) {
	seed := o.seedElapsed[pkg]
	if anchor, ok := o.seedAnchor[pkg]; ok && ts-anchor > o.graceMillis {
		// The bootstrapped session's grace lapsed before this enter; its
		// elapsed and gate state belong to a dead session.
		seed = 0
		if o.gateSeededPkg == pkg {
			o.gateSeededPkg = ""
		}
	}
	delete(o.seedElapsed, pkg)
	delete(o.seedAnchor, pkg)

	isNew := o.tracker.OnEnterTargetApp(pkg, ts, o.graceMillis, seed)
	if isNew && pkg != o.gateSeededPkg {
		o.gate.ResetForNewSession()
		if o.overlayState.Kind == overlay.KindDisabled && o.overlayEnabled {
			// Per-session disable lapses with the session it belongs to.
			o.overlayState = overlay.Idle
		}
	}
	o.gateSeededPkg = ""

	o.overlayState = overlay.Transition(o.overlayState, overlay.EnterTargetApp{Pkg: pkg})
	util.LogDebugf("track: enter %s (new=%v)", pkg, isNew)
}

func (o *Orchestrator) leaveTarget(pkg string, ts int64) {
	o.abortSuggestionFor(pkg, ts)
	o.tracker.OnLeaveTargetApp(pkg, ts)
	o.overlayState = overlay.Transition(o.overlayState, overlay.LeaveTargetApp{Pkg: pkg})
	util.LogDebugf("track: leave %s", pkg)
}

// abortSuggestionFor withdraws a showing prompt when its app stops
// being usable (left, screen off). No decision event is recorded.
func (o *Orchestrator) abortSuggestionFor(pkg string, ts int64) {
	if o.suggestionID == "" || o.suggestionPkg != pkg {
		return
	}
	o.gate.AbortShow(o.suggestionID)
	o.tracker.OnUIResume(pkg, ts)
	o.suggestionID = ""
	o.suggestionPkg = ""
}

func (o *Orchestrator) handleScreen(on bool, now int64) {
	if on == o.screenOn {
		return
	}
	state := event.ScreenOff
	if on {
		state = event.ScreenOn
	}
	o.effects.Enqueue(event.TimelineEvent{
		Timestamp: now,
		Payload:   event.ScreenPayload{State: state},
	})
	o.screenOn = on

	if !on {
		if o.isTarget(o.activePkg) {
			o.abortSuggestionFor(o.activePkg, now)
			o.tracker.OnLeaveTargetApp(o.activePkg, now)
		}
		o.overlayState = overlay.Transition(o.overlayState, overlay.ScreenOff{})
	} else if o.isTarget(o.activePkg) {
		o.enterTarget(o.activePkg, now)
	}
	o.publishView(now)
}

// handleTick runs the time-based logic: delta accumulation, day
// rollover, grace expiry, snapshot freshness and the suggestion gate.
// now is sampled once and threaded through everything.
func (o *Orchestrator) handleTick(now int64) {
	if now >= o.nextDayStart {
		tp := util.GetTimeProvider()
		o.dayStart = tp.DayStartMillis(now)
		o.nextDayStart = tp.NextDayStartMillis(now)
		o.cache.Invalidate("day rollover")
	}

	o.expireGraceWindows(now)

	o.cache.Tick(now, o.activeCountingPackage())

	params := o.cacheParams(now)
	o.cache.RequestRefresh(o.runCtx, params, o.cache.SnapshotStale(params))

	o.maybeSuggest(now)
	o.publishView(now)
}

// expireGraceWindows closes sessions whose grace period lapsed after a
// leave. The projector derives the same boundary from the log; this
// only retires runtime state.
func (o *Orchestrator) expireGraceWindows(now int64) {
	for _, pkg := range o.tracker.TrackedPackages() {
		leaveAt, ok := o.tracker.LastLeaveMillis(pkg)
		if !ok || now-leaveAt <= o.graceMillis {
			continue
		}
		o.tracker.ClearSession(pkg)
		delete(o.seedElapsed, pkg)
		delete(o.seedAnchor, pkg)
		o.gate.ResetForNewSession()
		if o.overlayState.Kind == overlay.KindDisabled && o.overlayEnabled {
			o.overlayState = overlay.Idle
		}
		util.LogDebugf("track: session for %s ended (grace lapsed)", pkg)
	}

	// Bootstrap seeds for packages never re-entered this run lapse on
	// the same clock, so a much later enter starts from zero.
	for pkg, anchor := range o.seedAnchor {
		if now-anchor <= o.graceMillis {
			continue
		}
		delete(o.seedElapsed, pkg)
		delete(o.seedAnchor, pkg)
		if o.gateSeededPkg == pkg {
			o.gateSeededPkg = ""
			o.gate.ResetForNewSession()
			if o.overlayState.Kind == overlay.KindDisabled && o.overlayEnabled {
				o.overlayState = overlay.Idle
			}
		}
		util.LogDebugf("track: dropping stale resume seed for %s", pkg)
	}
}

// activeCountingPackage returns the package the runtime delta should
// attribute this tick to, or "" when nothing is actively counting.
func (o *Orchestrator) activeCountingPackage() string {
	if !o.screenOn || !o.isTarget(o.activePkg) {
		return ""
	}
	if o.tracker.IsLeaveMarked(o.activePkg) {
		return ""
	}
	return o.activePkg
}

func (o *Orchestrator) maybeSuggest(now int64) {
	if !o.overlayEnabled || o.overlayState.Kind != overlay.KindTracking {
		return
	}
	pkg := o.overlayState.Pkg
	elapsed, ok := o.tracker.ComputeElapsedFor(pkg, now)
	if !ok {
		return
	}
	since, ok := o.tracker.SinceForegroundMillis(pkg, now)
	if !ok {
		return
	}
	if !o.gate.ShouldShow(elapsed, since) {
		return
	}
	id, ok := o.gate.BeginShow()
	if !ok {
		return
	}

	o.suggestionID = id
	o.suggestionPkg = pkg
	// Dwell time on the prompt is not usage.
	o.tracker.OnUIPause(pkg, now)
	o.overlayState = overlay.Transition(o.overlayState, overlay.SuggestionShown{})
	o.effects.Enqueue(event.TimelineEvent{
		Timestamp: now,
		Payload:   event.SuggestionShownPayload{PackageName: pkg, SuggestionID: id},
	})
	util.LogInfof("track: suggestion %s shown for %s after %s", id, pkg, util.FormatDurationMillis(elapsed))
}

func (o *Orchestrator) handleDecision(d event.Decision, now int64) {
	if o.suggestionID == "" {
		util.LogWarnf("track: decision %s with no suggestion showing", d)
		return
	}
	pkg := o.suggestionPkg
	id := o.suggestionID

	elapsed, _ := o.tracker.ComputeElapsedFor(pkg, now)
	if o.gate.RecordDecision(id, d, elapsed) {
		o.effects.Enqueue(event.TimelineEvent{
			Timestamp: now,
			Payload:   event.SuggestionDecisionPayload{PackageName: pkg, SuggestionID: id, Decision: d},
		})
	}
	o.tracker.OnUIResume(pkg, now)
	o.suggestionID = ""
	o.suggestionPkg = ""

	o.overlayState = overlay.Transition(o.overlayState, overlay.SuggestionClosed{})
	if d == event.DecisionDisabledForSession {
		o.overlayState = overlay.Transition(o.overlayState, overlay.OverlayDisabled{})
	}
	o.publishView(now)
}

func (o *Orchestrator) applySettings(ns *settings.Settings, now int64) {
	prevGrace := o.graceMillis
	prevOverlay := o.overlayEnabled
	prevTargets := o.targetList

	o.applySettingsFields(ns)

	if o.graceMillis != prevGrace {
		o.effects.Enqueue(event.TimelineEvent{
			Timestamp: now,
			Payload:   event.SettingsChangedPayload{Key: "grace_period_millis", Value: fmt.Sprintf("%d", o.graceMillis)},
		})
		o.cache.Invalidate("grace change")
	}

	if !equalStringSlices(prevTargets, o.targetList) {
		o.effects.Enqueue(event.TimelineEvent{
			Timestamp: now,
			Payload:   event.TargetAppsPayload{Packages: o.targetList},
		})
		o.cache.Invalidate("target set change")

		// A package dropped from the targets ends its session now.
		for _, pkg := range o.tracker.TrackedPackages() {
			if o.targets[pkg] {
				continue
			}
			o.abortSuggestionFor(pkg, now)
			o.tracker.ClearSession(pkg)
			o.gate.ResetForNewSession()
			if o.overlayState.Pkg == pkg {
				o.overlayState = overlay.Transition(o.overlayState, overlay.LeaveTargetApp{Pkg: pkg})
			}
		}
		// The current foreground app may have just become a target.
		if o.screenOn && o.isTarget(o.activePkg) && o.overlayState.Kind == overlay.KindIdle {
			o.enterTarget(o.activePkg, now)
		}
	}

	if o.overlayEnabled != prevOverlay {
		if !o.overlayEnabled {
			o.abortSuggestionFor(o.suggestionPkg, now)
		}
		o.overlayState = overlay.Transition(o.overlayState, overlay.SettingsChanged{OverlayEnabled: o.overlayEnabled})
		if o.overlayEnabled && o.screenOn && o.isTarget(o.activePkg) {
			o.overlayState = overlay.Transition(o.overlayState, overlay.EnterTargetApp{Pkg: o.activePkg})
		}
	}

	util.LogInfof("track: settings applied, %d target(s), grace=%dms", len(o.targetList), o.graceMillis)
	o.publishView(now)
}

func (o *Orchestrator) cacheParams(now int64) usage.Params {
	return usage.Params{
		DayStartMillis:    o.dayStart,
		GracePeriodMillis: o.graceMillis,
		TargetPackages:    o.targetList,
		NowMillis:         now,
	}
}

func (o *Orchestrator) publishView(now int64) {
	var elapsed int64
	if pkg := o.overlayState.Pkg; pkg != "" {
		elapsed, _ = o.tracker.ComputeElapsedFor(pkg, now)
	} else if o.isTarget(o.activePkg) {
		elapsed, _ = o.tracker.ComputeElapsedFor(o.activePkg, now)
	}

	perPkg := o.cache.TodayPerPackageMillis()
	var thisTarget int64
	if o.isTarget(o.activePkg) {
		thisTarget = perPkg[o.activePkg]
	}
	allTargets := o.cache.TodayAllTargetsMillis()

	o.state.Update(func(v *ViewState) {
		v.OverlayState = o.overlayState
		v.ActivePackage = o.activePkg
		v.ElapsedMillis = elapsed
		v.TodayThisTargetMillis = thisTarget
		v.TodayAllTargetsMillis = allTargets
		v.TodayPerPackage = perPkg
		v.SuggestionShowing = o.suggestionID != ""
		v.SuggestionID = o.suggestionID
		v.UpdatedAtMillis = now
	})
}

// cleanup records the service stop and clears runtime state. Nothing is
// flushed: pending effects are abandoned and re-derived from the log on
// the next start.
func (o *Orchestrator) cleanup() {
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := o.cfg.Log.Append(stopCtx, event.TimelineEvent{
		Timestamp: o.now(),
		Payload:   event.ServiceLifecyclePayload{State: event.ServiceStopped},
	}); err != nil {
		util.LogWarnf("track: failed to record service stop: %v", err)
	}

	o.tracker.ClearAll()
	o.suggestionID = ""
	o.suggestionPkg = ""
	o.overlayState = overlay.Idle
	o.state.Update(func(v *ViewState) {
		*v = ViewState{OverlayState: overlay.Idle}
	})
}

// View returns the current externally visible state.
func (o *Orchestrator) View() ViewState {
	return o.state.View()
}

// CurrentOverlayState returns the overlay state as last published.
func (o *Orchestrator) CurrentOverlayState() overlay.State {
	return o.state.View().OverlayState
}

// CurrentElapsedMillis returns the live elapsed time for pkg.
func (o *Orchestrator) CurrentElapsedMillis(pkg string) (int64, bool) {
	return o.tracker.ComputeElapsedFor(pkg, o.now())
}

// TodayTotals returns today's per-package and all-targets totals.
func (o *Orchestrator) TodayTotals() (map[string]int64, int64) {
	return o.cache.TodayPerPackageMillis(), o.cache.TodayAllTargetsMillis()
}

// RequestSuggestionDecision forwards the user's response to the loop.
// Returns false when the loop is too backed up to take it.
func (o *Orchestrator) RequestSuggestionDecision(d event.Decision) bool {
	select {
	case o.decisionCh <- d:
		return true
	default:
		util.LogWarn("track: decision channel full, dropping decision")
		return false
	}
}

// ReportScreen forwards a screen on/off transition to the loop.
func (o *Orchestrator) ReportScreen(on bool) bool {
	select {
	case o.screenCh <- on:
		return true
	default:
		util.LogWarn("track: screen channel full, dropping transition")
		return false
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
