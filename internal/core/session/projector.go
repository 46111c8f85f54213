package session

import (
	"fmt"

	"github.com/halfmoor/go-screentime-monitor/internal/core/event"
	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

// ProjectionInput carries everything a projection pass needs. Events
// must be in canonical log order (timestamp, then id); TargetPackages is
// the target set effective at the start of the window, superseded by any
// TargetAppsChanged event inside it.
type ProjectionInput struct {
	Events            []event.TimelineEvent
	TargetPackages    []string
	GracePeriodMillis int64
	NowMillis         int64
}

// Project reconstructs logical sessions from an ordered event window.
//
// The scan maintains the effective foreground package (ForegroundApp
// interleaved with Screen; a screen-off forces it to none) and the
// effective target set at each point in time. Entering a target package
// opens a session; leaving it marks a pending leave that either resolves
// into a Pause/Resume pair (gap within the grace period) or an End at
// the leave timestamp (gap definitively exceeded). Suggestion events are
// attached to the open session as informational sub-events and never
// open or close one.
//
// Project is deterministic: identical inputs produce identical output.
// The runtime tracker and daily cache only approximate this function
// between recomputations.
func Project(input ProjectionInput) []*Session {
	p := &projection{
		grace:    input.GracePeriodMillis,
		now:      input.NowMillis,
		targets:  make(map[string]struct{}, len(input.TargetPackages)),
		screenOn: true,
	}
	for _, pkg := range input.TargetPackages {
		p.targets[pkg] = struct{}{}
	}

	for _, ev := range input.Events {
		if ev.Timestamp > input.NowMillis {
			// Events from a clock jump ahead of "now" would produce
			// sessions the caller cannot reason about yet.
			util.LogWarnf("projector: skipping future event id=%d ts=%d now=%d", ev.ID, ev.Timestamp, input.NowMillis)
			continue
		}
		p.resolveExpiredLeave(ev.Timestamp)
		p.apply(ev)
	}
	p.finish()

	return p.sessions
}

type projection struct {
	grace    int64
	now      int64
	targets  map[string]struct{}
	screenOn bool
	lastFg   string

	open     *openSession
	sessions []*Session
}

type openSession struct {
	pkg          string
	events       []SessionEvent
	pendingLeave *int64
}

func (p *projection) effectiveForeground() string {
	if !p.screenOn {
		return ""
	}
	return p.lastFg
}

// resolveExpiredLeave closes the open session once a qualifying event
// shows the grace window has definitively elapsed. The End is stamped at
// the leave time, not at the observing event.
func (p *projection) resolveExpiredLeave(ts int64) {
	if p.open == nil || p.open.pendingLeave == nil {
		return
	}
	if ts-*p.open.pendingLeave > p.grace {
		p.closeOpen(*p.open.pendingLeave)
	}
}

func (p *projection) apply(ev event.TimelineEvent) {
	switch payload := ev.Payload.(type) {
	case event.ForegroundAppPayload:
		p.lastFg = payload.PackageName
		p.evaluate(ev.Timestamp)
	case event.ScreenPayload:
		p.screenOn = payload.State == event.ScreenOn
		p.evaluate(ev.Timestamp)
	case event.ServiceLifecyclePayload:
		if payload.State == event.ServiceStopped {
			// Service teardown means sampling stops; whatever was
			// foreground can no longer be confirmed.
			p.lastFg = ""
			p.evaluate(ev.Timestamp)
		}
	case event.TargetAppsPayload:
		p.targets = make(map[string]struct{}, len(payload.Packages))
		for _, pkg := range payload.Packages {
			p.targets[pkg] = struct{}{}
		}
		p.evaluate(ev.Timestamp)
	case event.SuggestionShownPayload:
		p.attach(payload.PackageName, SessionEvent{
			Kind:         EventSuggestionShown,
			Timestamp:    ev.Timestamp,
			SuggestionID: payload.SuggestionID,
		})
	case event.SuggestionDecisionPayload:
		if kind, ok := suggestionEventKind(payload.Decision); ok {
			p.attach(payload.PackageName, SessionEvent{
				Kind:         kind,
				Timestamp:    ev.Timestamp,
				SuggestionID: payload.SuggestionID,
			})
		} else {
			util.LogWarnf("projector: skipping suggestion decision with unknown value %q", payload.Decision)
		}
	case event.PermissionPayload, event.SettingsChangedPayload:
		// Informational; neither opens nor closes sessions.
	}
}

// evaluate reconciles the open session with the current effective
// foreground and target set at timestamp ts.
func (p *projection) evaluate(ts int64) {
	fg := p.effectiveForeground()
	_, inTarget := p.targets[fg]
	inTarget = inTarget && fg != ""

	if p.open == nil {
		if inTarget {
			p.openNew(fg, ts)
		}
		return
	}

	switch {
	case inTarget && fg == p.open.pkg:
		if p.open.pendingLeave != nil {
			leave := *p.open.pendingLeave
			if ts-leave <= p.grace {
				// Same package back within grace: one logical session
				// with the gap excluded from active time.
				p.open.events = append(p.open.events,
					SessionEvent{Kind: EventPause, Timestamp: leave},
					SessionEvent{Kind: EventResume, Timestamp: ts},
				)
				p.open.pendingLeave = nil
			} else {
				p.closeOpen(leave)
				p.openNew(fg, ts)
			}
		}
	case inTarget:
		// Direct switch to a different target package ends the prior
		// session immediately; grace only bridges gaps of the same app.
		leave := ts
		if p.open.pendingLeave != nil {
			leave = *p.open.pendingLeave
		}
		p.closeOpen(leave)
		p.openNew(fg, ts)
	default:
		if p.open.pendingLeave == nil {
			leave := ts
			p.open.pendingLeave = &leave
		}
	}
}

func (p *projection) attach(pkg string, ev SessionEvent) {
	if p.open == nil || p.open.pkg != pkg {
		util.LogDebugf("projector: dropping %s sub-event for %s with no open session", ev.Kind, pkg)
		return
	}
	p.open.events = append(p.open.events, ev)
}

func (p *projection) openNew(pkg string, ts int64) {
	p.open = &openSession{
		pkg:    pkg,
		events: []SessionEvent{{Kind: EventStart, Timestamp: ts}},
	}
}

func (p *projection) closeOpen(endTs int64) {
	p.open.events = append(p.open.events, SessionEvent{Kind: EventEnd, Timestamp: endTs})
	p.sessions = append(p.sessions, &Session{
		PackageName: p.open.pkg,
		Events:      p.open.events,
	})
	p.open = nil
}

// finish resolves the trailing open session against "now": an expired
// pending leave becomes an End, an unexpired one becomes a Pause with
// the session left open, and an active session stays open as-is.
func (p *projection) finish() {
	if p.open == nil {
		return
	}
	if p.open.pendingLeave != nil {
		leave := *p.open.pendingLeave
		if p.now-leave > p.grace {
			p.closeOpen(leave)
			return
		}
		p.open.events = append(p.open.events, SessionEvent{Kind: EventPause, Timestamp: leave})
	}
	p.sessions = append(p.sessions, &Session{
		PackageName: p.open.pkg,
		Events:      p.open.events,
	})
	p.open = nil
}

// Validate checks the structural invariants of a projected session and
// is used by tests and debug assertions.
func Validate(s *Session) error {
	if len(s.Events) == 0 {
		return fmt.Errorf("session %s has no sub-events", s.PackageName)
	}
	if s.Events[0].Kind != EventStart {
		return fmt.Errorf("session %s does not begin with start", s.PackageName)
	}
	prevTs := int64(-1 << 62)
	pauseOpen := false
	for i, ev := range s.Events {
		if ev.Timestamp < prevTs {
			return fmt.Errorf("session %s sub-event %d out of order", s.PackageName, i)
		}
		prevTs = ev.Timestamp
		switch ev.Kind {
		case EventEnd:
			if i != len(s.Events)-1 {
				return fmt.Errorf("session %s has end before last sub-event", s.PackageName)
			}
		case EventPause:
			if pauseOpen {
				return fmt.Errorf("session %s has consecutive pauses", s.PackageName)
			}
			pauseOpen = true
		case EventResume:
			if !pauseOpen {
				return fmt.Errorf("session %s has resume without open pause", s.PackageName)
			}
			pauseOpen = false
		}
	}
	return nil
}
