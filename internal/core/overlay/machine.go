// Package overlay models the lifecycle of the on-screen usage overlay
// as a pure reducer. Transition holds no state of its own: the caller
// owns the current state, re-invokes the reducer on every incoming
// event, and compares old vs. new to decide which side effects to run.
package overlay

import "fmt"

// StateKind enumerates the overlay lifecycle states.
type StateKind int

const (
	// KindIdle means no target app is foreground and nothing is shown.
	KindIdle StateKind = iota
	// KindTracking means a target app is foreground and the elapsed
	// overlay is visible.
	KindTracking
	// KindPaused means tracking continues but the overlay UI is
	// suspended while an interruptive surface is drawing over it.
	KindPaused
	// KindSuggesting means the take-a-break suggestion is showing on
	// top of the tracking overlay.
	KindSuggesting
	// KindDisabled means the overlay is switched off, either for the
	// rest of the session or via settings.
	KindDisabled
)

func (k StateKind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindTracking:
		return "tracking"
	case KindPaused:
		return "paused"
	case KindSuggesting:
		return "suggesting"
	case KindDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("state(%d)", int(k))
	}
}

// State is the full overlay state. Pkg is set for Tracking, Paused and
// Suggesting; empty otherwise. The zero value is Idle.
type State struct {
	Kind StateKind
	Pkg  string
}

// Idle is the initial state.
var Idle = State{Kind: KindIdle}

func (s State) String() string {
	if s.Pkg == "" {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.Pkg)
}

// Event is a transition trigger.
type Event interface{ overlayEvent() }

// EnterTargetApp fires when a tracked package gains foreground.
type EnterTargetApp struct{ Pkg string }

// LeaveTargetApp fires when the named package loses foreground.
type LeaveTargetApp struct{ Pkg string }

// ScreenOff fires when the display turns off.
type ScreenOff struct{}

// SettingsChanged carries the overlay-enabled toggle.
type SettingsChanged struct{ OverlayEnabled bool }

// OverlayDisabled fires when the user disables the overlay for the
// rest of the current session.
type OverlayDisabled struct{}

// SuggestionShown fires when a break suggestion is presented.
type SuggestionShown struct{}

// SuggestionClosed fires when the suggestion is snoozed or dismissed
// and tracking continues.
type SuggestionClosed struct{}

// UIPaused fires when the overlay host stops drawing.
type UIPaused struct{}

// UIResumed fires when the overlay host resumes drawing.
type UIResumed struct{}

func (EnterTargetApp) overlayEvent()   {}
func (LeaveTargetApp) overlayEvent()   {}
func (ScreenOff) overlayEvent()        {}
func (SettingsChanged) overlayEvent()  {}
func (OverlayDisabled) overlayEvent()  {}
func (SuggestionShown) overlayEvent()  {}
func (SuggestionClosed) overlayEvent() {}
func (UIPaused) overlayEvent()         {}
func (UIResumed) overlayEvent()        {}

// Transition is the reducer. Unmatched combinations return the state
// unchanged; the caller must treat "no change" as "no side effect".
func Transition(s State, ev Event) State {
	switch e := ev.(type) {
	case OverlayDisabled:
		return State{Kind: KindDisabled}
	case SettingsChanged:
		if !e.OverlayEnabled {
			return State{Kind: KindDisabled}
		}
		if s.Kind == KindDisabled {
			return Idle
		}
		return s
	case EnterTargetApp:
		if s.Kind == KindIdle {
			return State{Kind: KindTracking, Pkg: e.Pkg}
		}
		return s
	case LeaveTargetApp:
		// Only a leave for the package being tracked ends the overlay;
		// stale leaves for an already-replaced package are no-ops.
		switch s.Kind {
		case KindTracking, KindPaused, KindSuggesting:
			if e.Pkg == s.Pkg {
				return Idle
			}
		}
		return s
	case ScreenOff:
		switch s.Kind {
		case KindTracking, KindPaused, KindSuggesting:
			return Idle
		}
		return s
	case SuggestionShown:
		if s.Kind == KindTracking {
			return State{Kind: KindSuggesting, Pkg: s.Pkg}
		}
		return s
	case SuggestionClosed:
		if s.Kind == KindSuggesting {
			return State{Kind: KindTracking, Pkg: s.Pkg}
		}
		return s
	case UIPaused:
		if s.Kind == KindTracking {
			return State{Kind: KindPaused, Pkg: s.Pkg}
		}
		return s
	case UIResumed:
		if s.Kind == KindPaused {
			return State{Kind: KindTracking, Pkg: s.Pkg}
		}
		return s
	}
	return s
}
