package session

import "github.com/halfmoor/go-screentime-monitor/internal/core/event"

// SessionEventKind identifies a sub-event within a projected session.
type SessionEventKind string

const (
	EventStart                        SessionEventKind = "start"
	EventEnd                          SessionEventKind = "end"
	EventPause                        SessionEventKind = "pause"
	EventResume                       SessionEventKind = "resume"
	EventSuggestionShown              SessionEventKind = "suggestion_shown"
	EventSuggestionSnoozed            SessionEventKind = "suggestion_snoozed"
	EventSuggestionDismissed          SessionEventKind = "suggestion_dismissed"
	EventSuggestionDisabledForSession SessionEventKind = "suggestion_disabled_for_session"
)

// SessionEvent is a derived sub-event attached to a projected session.
// It is never persisted independently; re-projection rebuilds it.
type SessionEvent struct {
	Kind         SessionEventKind
	Timestamp    int64 // unix millis
	SuggestionID string
}

// Session is one continuous-enough period of using a target app.
// Sub-events are time-ordered, the first is always a Start, and an End,
// if present, is last.
type Session struct {
	PackageName string
	Events      []SessionEvent
}

// StartTime returns the timestamp of the session's Start sub-event.
func (s *Session) StartTime() int64 {
	if len(s.Events) == 0 {
		return 0
	}
	return s.Events[0].Timestamp
}

// IsOpen reports whether the session has no End sub-event yet.
func (s *Session) IsOpen() bool {
	for i := len(s.Events) - 1; i >= 0; i-- {
		if s.Events[i].Kind == EventEnd {
			return false
		}
	}
	return true
}

// EndTime returns the End sub-event timestamp, or 0 for an open session.
func (s *Session) EndTime() int64 {
	for i := len(s.Events) - 1; i >= 0; i-- {
		if s.Events[i].Kind == EventEnd {
			return s.Events[i].Timestamp
		}
	}
	return 0
}

// suggestionEventKind maps a persisted decision to its sub-event kind.
func suggestionEventKind(d event.Decision) (SessionEventKind, bool) {
	switch d {
	case event.DecisionSnoozed:
		return EventSuggestionSnoozed, true
	case event.DecisionDismissed:
		return EventSuggestionDismissed, true
	case event.DecisionDisabledForSession:
		return EventSuggestionDisabledForSession, true
	default:
		return "", false
	}
}
