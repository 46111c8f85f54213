package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroValueIsIdle(t *testing.T) {
	assert.Equal(t, Idle, State{})
}

func TestEnterAndLeave(t *testing.T) {
	s := Transition(Idle, EnterTargetApp{Pkg: "com.example.feed"})
	assert.Equal(t, State{Kind: KindTracking, Pkg: "com.example.feed"}, s)

	s = Transition(s, LeaveTargetApp{Pkg: "com.example.feed"})
	assert.Equal(t, Idle, s)
}

func TestLeaveForOtherPackageIgnored(t *testing.T) {
	tracking := State{Kind: KindTracking, Pkg: "com.example.feed"}
	s := Transition(tracking, LeaveTargetApp{Pkg: "com.example.video"})
	assert.Equal(t, tracking, s, "stale leave for a different package is a no-op")
}

func TestScreenOffEndsTracking(t *testing.T) {
	s := Transition(State{Kind: KindTracking, Pkg: "a"}, ScreenOff{})
	assert.Equal(t, Idle, s)

	s = Transition(State{Kind: KindSuggesting, Pkg: "a"}, ScreenOff{})
	assert.Equal(t, Idle, s)

	s = Transition(Idle, ScreenOff{})
	assert.Equal(t, Idle, s)
}

func TestEnterWhileTrackingIsNoOp(t *testing.T) {
	tracking := State{Kind: KindTracking, Pkg: "a"}
	s := Transition(tracking, EnterTargetApp{Pkg: "b"})
	assert.Equal(t, tracking, s, "tracking ends before a new package starts")
}

func TestIdleIsOnlyWayIntoTracking(t *testing.T) {
	enter := EnterTargetApp{Pkg: "a"}
	for _, from := range []State{
		{Kind: KindTracking, Pkg: "x"},
		{Kind: KindPaused, Pkg: "x"},
		{Kind: KindSuggesting, Pkg: "x"},
		{Kind: KindDisabled},
	} {
		got := Transition(from, enter)
		assert.Equal(t, from, got, "from %v", from)
	}
	assert.Equal(t, KindTracking, Transition(Idle, enter).Kind)
}

func TestDisabledReachableFromEverywhere(t *testing.T) {
	states := []State{
		Idle,
		{Kind: KindTracking, Pkg: "a"},
		{Kind: KindPaused, Pkg: "a"},
		{Kind: KindSuggesting, Pkg: "a"},
		{Kind: KindDisabled},
	}
	for _, from := range states {
		assert.Equal(t, State{Kind: KindDisabled}, Transition(from, OverlayDisabled{}), "from %v", from)
		assert.Equal(t, State{Kind: KindDisabled}, Transition(from, SettingsChanged{OverlayEnabled: false}), "from %v", from)
	}
}

func TestSettingsReenableLeavesDisabled(t *testing.T) {
	s := Transition(State{Kind: KindDisabled}, SettingsChanged{OverlayEnabled: true})
	assert.Equal(t, Idle, s)

	// Re-enabling while already enabled changes nothing.
	tracking := State{Kind: KindTracking, Pkg: "a"}
	assert.Equal(t, tracking, Transition(tracking, SettingsChanged{OverlayEnabled: true}))
}

func TestSuggestionRoundTrip(t *testing.T) {
	tracking := State{Kind: KindTracking, Pkg: "a"}

	s := Transition(tracking, SuggestionShown{})
	assert.Equal(t, State{Kind: KindSuggesting, Pkg: "a"}, s)

	s = Transition(s, SuggestionClosed{})
	assert.Equal(t, tracking, s)

	// Shown while not tracking is ignored.
	assert.Equal(t, Idle, Transition(Idle, SuggestionShown{}))
}

func TestUIPauseResume(t *testing.T) {
	tracking := State{Kind: KindTracking, Pkg: "a"}

	s := Transition(tracking, UIPaused{})
	assert.Equal(t, State{Kind: KindPaused, Pkg: "a"}, s)

	s = Transition(s, UIResumed{})
	assert.Equal(t, tracking, s)

	// Leaving the app while paused clears everything.
	s = Transition(State{Kind: KindPaused, Pkg: "a"}, LeaveTargetApp{Pkg: "a"})
	assert.Equal(t, Idle, s)
}

func TestTransitionIsPure(t *testing.T) {
	states := []State{
		Idle,
		{Kind: KindTracking, Pkg: "a"},
		{Kind: KindPaused, Pkg: "a"},
		{Kind: KindSuggesting, Pkg: "a"},
		{Kind: KindDisabled},
	}
	events := []Event{
		EnterTargetApp{Pkg: "a"},
		LeaveTargetApp{Pkg: "a"},
		ScreenOff{},
		SettingsChanged{OverlayEnabled: true},
		SettingsChanged{OverlayEnabled: false},
		OverlayDisabled{},
		SuggestionShown{},
		SuggestionClosed{},
		UIPaused{},
		UIResumed{},
	}
	for _, s := range states {
		for _, ev := range events {
			first := Transition(s, ev)
			second := Transition(s, ev)
			assert.Equal(t, first, second, "state %v event %T", s, ev)
		}
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "tracking(com.example.feed)", State{Kind: KindTracking, Pkg: "com.example.feed"}.String())
	assert.Equal(t, "disabled", State{Kind: KindDisabled}.String())
}
