package track

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
	"github.com/halfmoor/go-screentime-monitor/internal/core/overlay"
	"github.com/halfmoor/go-screentime-monitor/internal/data/eventlog"
	"github.com/halfmoor/go-screentime-monitor/internal/data/sampler"
	"github.com/halfmoor/go-screentime-monitor/internal/data/settings"
)

const (
	testTarget  = "com.example.reader"
	testTarget2 = "com.example.video"
	testOther   = "com.example.launcher"
)

type fakeClock struct {
	millis int64
}

func (c *fakeClock) now() int64          { return atomic.LoadInt64(&c.millis) }
func (c *fakeClock) set(ms int64)        { atomic.StoreInt64(&c.millis, ms) }
func (c *fakeClock) advance(delta int64) { atomic.AddInt64(&c.millis, delta) }

func testSettings() *settings.Settings {
	s := settings.Defaults()
	s.Tracking.TargetPackages = []string{testTarget, testTarget2}
	s.Tracking.GracePeriodMillis = 5000
	s.Tracking.PollIntervalMillis = 1000
	s.Suggestion.TriggerThresholdMillis = 60000
	s.Suggestion.StableThresholdMillis = 2000
	s.Suggestion.CooldownMillis = 120000
	return s
}

// newTestOrchestrator wires an orchestrator against an in-memory log
// with a controllable clock, initialized as if Run had just started.
func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeClock, *eventlog.MemoryLog) {
	t.Helper()
	clk := &fakeClock{millis: 1_000_000}
	log := eventlog.NewMemoryLog()

	o, err := NewOrchestrator(Config{
		Settings: settings.NewStaticSource(testSettings()),
		Log:      log,
		Sampler:  sampler.NewChannelSampler(),
		Clock:    clk.now,
	})
	require.NoError(t, err)

	o.runCtx = context.Background()
	o.resetLoopState(o.settings.Current(), clk.now())
	return o, clk, log
}

func sample(pkg string, gen uint64, at int64) sampler.Sample {
	return sampler.Sample{PackageName: pkg, Generation: gen, AtMillis: at}
}

func TestEnterAndLeaveTarget(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)

	o.handleSample(sample(testTarget, 1, clk.now()))
	assert.Equal(t, overlay.KindTracking, o.overlayState.Kind)
	assert.Equal(t, testTarget, o.overlayState.Pkg)

	clk.advance(10_000)
	elapsed, ok := o.tracker.ComputeElapsedFor(testTarget, clk.now())
	require.True(t, ok)
	assert.Equal(t, int64(10_000), elapsed)

	o.handleSample(sample(testOther, 2, clk.now()))
	assert.Equal(t, overlay.KindIdle, o.overlayState.Kind)
	assert.True(t, o.tracker.IsLeaveMarked(testTarget))

	view := o.View()
	assert.Equal(t, testOther, view.ActivePackage)
}

func TestReconfirmationDoesNotRestartSession(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)

	o.handleSample(sample(testTarget, 1, clk.now()))
	clk.advance(3000)
	o.handleSample(sample(testTarget, 2, clk.now()))
	clk.advance(3000)

	elapsed, ok := o.tracker.ComputeElapsedFor(testTarget, clk.now())
	require.True(t, ok)
	assert.Equal(t, int64(6000), elapsed)
}

func TestReturnWithinGraceContinuesSession(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)
	start := clk.now()

	o.handleSample(sample(testTarget, 1, start))
	clk.advance(4000)
	o.handleSample(sample(testOther, 2, clk.now()))

	// Back inside the 5s grace window: the gap does not count, the
	// session does not restart.
	clk.advance(3000)
	o.handleSample(sample(testTarget, 3, clk.now()))
	clk.advance(2000)

	elapsed, ok := o.tracker.ComputeElapsedFor(testTarget, clk.now())
	require.True(t, ok)
	assert.Equal(t, int64(6000), elapsed)
}

func TestGraceExpiryEndsSession(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)

	o.handleSample(sample(testTarget, 1, clk.now()))
	clk.advance(4000)
	o.handleSample(sample(testOther, 2, clk.now()))

	clk.advance(o.graceMillis + 1)
	o.handleTick(clk.now())
	assert.Empty(t, o.tracker.TrackedPackages())

	// Coming back now starts a fresh session from zero.
	o.handleSample(sample(testTarget, 3, clk.now()))
	clk.advance(1000)
	elapsed, ok := o.tracker.ComputeElapsedFor(testTarget, clk.now())
	require.True(t, ok)
	assert.Equal(t, int64(1000), elapsed)
}

func TestForegroundChangesArePersisted(t *testing.T) {
	o, clk, log := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.effects.Run(ctx)

	o.handleSample(sample(testTarget, 1, clk.now()))
	clk.advance(2000)
	o.handleSample(sample(testOther, 2, clk.now()))

	evs := waitForCount(t, log, 2)
	require.Len(t, evs, 2)
	assert.Equal(t, event.KindForegroundApp, evs[0].Kind())
	assert.Equal(t, event.KindForegroundApp, evs[1].Kind())
	p0 := evs[0].Payload.(event.ForegroundAppPayload)
	assert.Equal(t, testTarget, p0.PackageName)
}

func TestSuggestionShownAndSnoozed(t *testing.T) {
	o, clk, log := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.effects.Run(ctx)

	o.handleSample(sample(testTarget, 1, clk.now()))

	// Below the trigger threshold: no prompt.
	clk.advance(30_000)
	o.handleTick(clk.now())
	assert.False(t, o.View().SuggestionShowing)

	clk.advance(31_000)
	o.handleTick(clk.now())
	require.True(t, o.View().SuggestionShowing)
	assert.Equal(t, overlay.KindSuggesting, o.overlayState.Kind)
	assert.False(t, o.tracker.IsLeaveMarked(testTarget))

	// The prompt pauses the clock.
	pausedAt, ok := o.tracker.ComputeElapsedFor(testTarget, clk.now())
	require.True(t, ok)
	clk.advance(10_000)
	stillPaused, _ := o.tracker.ComputeElapsedFor(testTarget, clk.now())
	assert.Equal(t, pausedAt, stillPaused)

	o.handleDecision(event.DecisionSnoozed, clk.now())
	assert.False(t, o.View().SuggestionShowing)
	assert.Equal(t, overlay.KindTracking, o.overlayState.Kind)

	// Shown + decision both land in the log.
	evs := waitForCount(t, log, 3)
	kinds := make(map[event.Kind]int)
	for _, ev := range evs {
		kinds[ev.Kind()]++
	}
	assert.Equal(t, 1, kinds[event.KindSuggestionShown])
	assert.Equal(t, 1, kinds[event.KindSuggestionDecision])

	// Cooldown: another threshold's worth of usage is not enough until
	// the cooldown has elapsed in usage time.
	clk.advance(61_000)
	o.handleTick(clk.now())
	assert.False(t, o.View().SuggestionShowing)
}

func TestDisableForSessionSilencesOverlayUntilNewSession(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)

	o.handleSample(sample(testTarget, 1, clk.now()))
	clk.advance(61_000)
	o.handleTick(clk.now())
	require.True(t, o.View().SuggestionShowing)

	o.handleDecision(event.DecisionDisabledForSession, clk.now())
	assert.Equal(t, overlay.KindDisabled, o.overlayState.Kind)
	assert.True(t, o.gate.DisabledForSession())

	// Still disabled within the same session.
	clk.advance(200_000)
	o.handleTick(clk.now())
	assert.False(t, o.View().SuggestionShowing)

	// End the session, come back: disable does not carry over.
	o.handleSample(sample(testOther, 2, clk.now()))
	clk.advance(o.graceMillis + 1)
	o.handleTick(clk.now())
	assert.Equal(t, overlay.KindIdle, o.overlayState.Kind)

	o.handleSample(sample(testTarget, 3, clk.now()))
	assert.Equal(t, overlay.KindTracking, o.overlayState.Kind)
	assert.False(t, o.gate.DisabledForSession())
}

func TestLeaveWhileSuggestionShowingAborts(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)

	o.handleSample(sample(testTarget, 1, clk.now()))
	clk.advance(61_000)
	o.handleTick(clk.now())
	require.True(t, o.View().SuggestionShowing)

	o.handleSample(sample(testOther, 2, clk.now()))
	assert.False(t, o.View().SuggestionShowing)
	assert.False(t, o.gate.IsShowing())
	assert.Equal(t, overlay.KindIdle, o.overlayState.Kind)
}

func TestScreenOffStopsCountingAndScreenOnResumes(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)

	o.handleSample(sample(testTarget, 1, clk.now()))
	clk.advance(3000)
	o.handleScreen(false, clk.now())
	assert.Equal(t, overlay.KindIdle, o.overlayState.Kind)
	assert.True(t, o.tracker.IsLeaveMarked(testTarget))

	// Time with the screen off does not count.
	clk.advance(2000)
	o.handleScreen(true, clk.now())
	assert.Equal(t, overlay.KindTracking, o.overlayState.Kind)

	clk.advance(1000)
	elapsed, ok := o.tracker.ComputeElapsedFor(testTarget, clk.now())
	require.True(t, ok)
	assert.Equal(t, int64(4000), elapsed)
}

func TestRemovingTargetEndsItsSession(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)

	o.handleSample(sample(testTarget, 1, clk.now()))
	require.Equal(t, overlay.KindTracking, o.overlayState.Kind)

	ns := testSettings()
	ns.Tracking.TargetPackages = []string{testTarget2}
	o.applySettings(ns, clk.now())

	assert.Empty(t, o.tracker.TrackedPackages())
	assert.Equal(t, overlay.KindIdle, o.overlayState.Kind)
	assert.False(t, o.isTarget(testTarget))
}

func TestAddingCurrentForegroundAsTargetStartsTracking(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)

	o.handleSample(sample(testOther, 1, clk.now()))
	assert.Equal(t, overlay.KindIdle, o.overlayState.Kind)

	ns := testSettings()
	ns.Tracking.TargetPackages = []string{testOther}
	o.applySettings(ns, clk.now())

	assert.Equal(t, overlay.KindTracking, o.overlayState.Kind)
	assert.Equal(t, testOther, o.overlayState.Pkg)
}

func TestOverlayToggleViaSettings(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)

	o.handleSample(sample(testTarget, 1, clk.now()))

	ns := testSettings()
	ns.Overlay.Enabled = false
	o.applySettings(ns, clk.now())
	assert.Equal(t, overlay.KindDisabled, o.overlayState.Kind)

	// No prompt while disabled, regardless of elapsed time.
	clk.advance(200_000)
	o.handleTick(clk.now())
	assert.False(t, o.View().SuggestionShowing)

	ns2 := testSettings()
	o.applySettings(ns2, clk.now())
	assert.Equal(t, overlay.KindTracking, o.overlayState.Kind)
}

func TestDayRolloverResetsWindow(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)

	prevDayStart := o.dayStart
	clk.set(o.nextDayStart + 1000)
	o.handleTick(clk.now())

	assert.Greater(t, o.dayStart, prevDayStart)
	assert.Greater(t, o.nextDayStart, o.dayStart)
}

func TestDecisionWithNoPromptIsIgnored(t *testing.T) {
	o, clk, log := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.effects.Run(ctx)

	o.handleDecision(event.DecisionSnoozed, clk.now())
	assert.False(t, o.View().SuggestionShowing)

	evs, err := log.Query(context.Background(), 0, 1<<62)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

// A supervisor restart calls Run again on the same orchestrator. Each
// entry must stand up its own persistence worker; with a shared one,
// the second shutdown would close the worker's done channel twice.
func TestRunAgainReplacesEffectsWorker(t *testing.T) {
	clk := &fakeClock{millis: 1_000_000}
	script := []sampler.ScriptEntry{{PackageName: testOther, AtMillis: 1_000_000}}

	o, err := NewOrchestrator(Config{
		Settings: settings.NewStaticSource(testSettings()),
		Log:      eventlog.NewMemoryLog(),
		Sampler:  sampler.NewReplaySampler(script),
		Clock:    clk.now,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, o.Run(ctx))
	first := o.effects
	require.NoError(t, o.Run(ctx))
	second := o.effects
	require.NotSame(t, first, second)

	cancel()
	for _, fx := range []*Effects{first, second} {
		select {
		case <-fx.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("effects worker did not exit")
		}
	}
}

func TestBootstrapResumesRecentOpenSession(t *testing.T) {
	o, clk, log := newTestOrchestrator(t)
	ctx := context.Background()

	// Open session with ten seconds of confirmed activity, interrupted
	// two seconds ago, well inside the grace window.
	start := clk.now() - 12_000
	for _, ts := range []int64{start, start + 10_000} {
		_, err := log.Append(ctx, event.TimelineEvent{
			Timestamp: ts,
			Payload:   event.ForegroundAppPayload{PackageName: testTarget},
		})
		require.NoError(t, err)
	}

	bs, err := bootstrap(ctx, log, o.targetList, o.graceMillis, clk.now())
	require.NoError(t, err)
	o.seedElapsed = bs.seedElapsed
	o.seedAnchor = bs.seedAnchor

	o.handleSample(sample(testTarget, 1, clk.now()))
	clk.advance(1000)
	elapsed, ok := o.tracker.ComputeElapsedFor(testTarget, clk.now())
	require.True(t, ok)
	assert.Equal(t, int64(11_000), elapsed)
}

func TestBootstrapSeedLapsesBeforeLateReenter(t *testing.T) {
	o, clk, log := newTestOrchestrator(t)
	ctx := context.Background()

	// Same open session, but the tracker was down for an hour before
	// the package came back to the foreground.
	start := clk.now()
	for _, ts := range []int64{start, start + 10_000} {
		_, err := log.Append(ctx, event.TimelineEvent{
			Timestamp: ts,
			Payload:   event.ForegroundAppPayload{PackageName: testTarget},
		})
		require.NoError(t, err)
	}
	clk.advance(10_000 + time.Hour.Milliseconds())

	bs, err := bootstrap(ctx, log, o.targetList, o.graceMillis, clk.now())
	require.NoError(t, err)
	o.seedElapsed = bs.seedElapsed
	o.seedAnchor = bs.seedAnchor
	o.gateSeededPkg = testTarget

	// The dead session's elapsed must not leak into the new one.
	o.handleSample(sample(testTarget, 1, clk.now()))
	clk.advance(1000)
	elapsed, ok := o.tracker.ComputeElapsedFor(testTarget, clk.now())
	require.True(t, ok)
	assert.Equal(t, int64(1000), elapsed)
	assert.Equal(t, "", o.gateSeededPkg)
}

func TestGraceSweepDropsLapsedSeeds(t *testing.T) {
	o, clk, _ := newTestOrchestrator(t)

	o.seedElapsed[testTarget] = 10_000
	o.seedAnchor[testTarget] = clk.now()
	o.gateSeededPkg = testTarget

	clk.advance(o.graceMillis + 1)
	o.expireGraceWindows(clk.now())

	assert.Empty(t, o.seedElapsed)
	assert.Empty(t, o.seedAnchor)
	assert.Equal(t, "", o.gateSeededPkg)
}
