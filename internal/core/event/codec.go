package event

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// CodecVersion is stamped on every encoded payload. Decoders accept any
// version up to the current one; a payload from a newer build is skipped
// rather than guessed at.
const CodecVersion = 1

// ErrUnknownKind marks an event whose kind this build does not know.
// Callers treat such events as absent (projection must always terminate).
var ErrUnknownKind = errors.New("unknown event kind")

// EncodePayload serializes a payload to its persisted JSON form and
// returns the kind tag alongside it.
func EncodePayload(p Payload) (kind Kind, version int, data []byte, err error) {
	if p == nil {
		return "", 0, nil, errors.New("nil payload")
	}
	data, err = sonic.Marshal(p)
	if err != nil {
		return "", 0, nil, fmt.Errorf("encode %s payload: %w", p.EventKind(), err)
	}
	return p.EventKind(), CodecVersion, data, nil
}

// DecodePayload reconstructs a payload from its persisted form. Unknown
// kinds and future versions return ErrUnknownKind; malformed bodies
// return the underlying decode error. Both are skip conditions for the
// caller.
func DecodePayload(kind Kind, version int, data []byte) (Payload, error) {
	if version > CodecVersion {
		return nil, fmt.Errorf("%w: %s version %d", ErrUnknownKind, kind, version)
	}

	var p Payload
	switch kind {
	case KindServiceLifecycle:
		p = &ServiceLifecyclePayload{}
	case KindPermission:
		p = &PermissionPayload{}
	case KindScreen:
		p = &ScreenPayload{}
	case KindForegroundApp:
		p = &ForegroundAppPayload{}
	case KindTargetAppsChanged:
		p = &TargetAppsPayload{}
	case KindSuggestionShown:
		p = &SuggestionShownPayload{}
	case KindSuggestionDecision:
		p = &SuggestionDecisionPayload{}
	case KindSettingsChanged:
		p = &SettingsChangedPayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if err := sonic.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return deref(p), nil
}

// deref returns the payload by value so decoded events compare equal to
// hand-built ones.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *ServiceLifecyclePayload:
		return *v
	case *PermissionPayload:
		return *v
	case *ScreenPayload:
		return *v
	case *ForegroundAppPayload:
		return *v
	case *TargetAppsPayload:
		return *v
	case *SuggestionShownPayload:
		return *v
	case *SuggestionDecisionPayload:
		return *v
	case *SettingsChangedPayload:
		return *v
	default:
		return p
	}
}
