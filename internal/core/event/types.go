package event

// Kind identifies a timeline event variant. The string values are the
// persisted tags; renaming one is a schema change.
type Kind string

const (
	KindServiceLifecycle   Kind = "service_lifecycle"
	KindPermission         Kind = "permission"
	KindScreen             Kind = "screen"
	KindForegroundApp      Kind = "foreground_app"
	KindTargetAppsChanged  Kind = "target_apps_changed"
	KindSuggestionShown    Kind = "suggestion_shown"
	KindSuggestionDecision Kind = "suggestion_decision"
	KindSettingsChanged    Kind = "settings_changed"
)

// ServiceState describes the tracking service lifecycle.
type ServiceState string

const (
	ServiceStarted ServiceState = "started"
	ServiceStopped ServiceState = "stopped"
)

// ScreenState describes the device screen.
type ScreenState string

const (
	ScreenOn  ScreenState = "on"
	ScreenOff ScreenState = "off"
)

// PermissionState describes a platform permission grant.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// Decision is the user's response to a shown suggestion.
type Decision string

const (
	DecisionSnoozed            Decision = "snoozed"
	DecisionDismissed          Decision = "dismissed"
	DecisionDisabledForSession Decision = "disabled_for_session"
)

// Payload is the variant-specific body of a TimelineEvent.
type Payload interface {
	EventKind() Kind
}

// TimelineEvent is an immutable, timestamped fact appended to the event
// log. ID is assigned on append (0 before persistence) and is the
// tie-break for events sharing a timestamp.
type TimelineEvent struct {
	ID        int64
	Timestamp int64 // unix millis
	Payload   Payload
}

// Kind returns the variant tag of the event's payload.
func (e TimelineEvent) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.EventKind()
}

type ServiceLifecyclePayload struct {
	State ServiceState `json:"state"`
}

func (ServiceLifecyclePayload) EventKind() Kind { return KindServiceLifecycle }

type PermissionPayload struct {
	Permission string          `json:"permission"`
	State      PermissionState `json:"state"`
}

func (PermissionPayload) EventKind() Kind { return KindPermission }

type ScreenPayload struct {
	State ScreenState `json:"state"`
}

func (ScreenPayload) EventKind() Kind { return KindScreen }

// ForegroundAppPayload records which package is foreground. An empty
// PackageName means no app (launcher, lock screen).
type ForegroundAppPayload struct {
	PackageName string `json:"packageName,omitempty"`
}

func (ForegroundAppPayload) EventKind() Kind { return KindForegroundApp }

type TargetAppsPayload struct {
	Packages []string `json:"packages"`
}

func (TargetAppsPayload) EventKind() Kind { return KindTargetAppsChanged }

type SuggestionShownPayload struct {
	PackageName  string `json:"packageName"`
	SuggestionID string `json:"suggestionId"`
}

func (SuggestionShownPayload) EventKind() Kind { return KindSuggestionShown }

type SuggestionDecisionPayload struct {
	PackageName  string   `json:"packageName"`
	SuggestionID string   `json:"suggestionId"`
	Decision     Decision `json:"decision"`
}

func (SuggestionDecisionPayload) EventKind() Kind { return KindSuggestionDecision }

type SettingsChangedPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (SettingsChangedPayload) EventKind() Kind { return KindSettingsChanged }
