package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildActiveSegmentsEmpty(t *testing.T) {
	assert.Empty(t, BuildActiveSegments(nil, 1000))
	assert.Equal(t, int64(0), CalculateDurationMillis(nil, 1000))
}

func TestBuildActiveSegmentsOpenSession(t *testing.T) {
	events := []SessionEvent{
		{Kind: EventStart, Timestamp: 1000},
	}

	segments := BuildActiveSegments(events, 5000)

	assert.Equal(t, []Segment{{StartMillis: 1000, EndMillis: 5000}}, segments)
	assert.Equal(t, int64(4000), CalculateDurationMillis(events, 5000))
}

func TestBuildActiveSegmentsPauseResume(t *testing.T) {
	events := []SessionEvent{
		{Kind: EventStart, Timestamp: 0},
		{Kind: EventPause, Timestamp: 5000},
		{Kind: EventResume, Timestamp: 8000},
		{Kind: EventEnd, Timestamp: 12000},
	}

	segments := BuildActiveSegments(events, 20000)

	assert.Equal(t, []Segment{
		{StartMillis: 0, EndMillis: 5000},
		{StartMillis: 8000, EndMillis: 12000},
	}, segments)
	assert.Equal(t, int64(9000), CalculateDurationMillis(events, 20000))
}

func TestBuildActiveSegmentsIgnoresInformational(t *testing.T) {
	events := []SessionEvent{
		{Kind: EventStart, Timestamp: 0},
		{Kind: EventSuggestionShown, Timestamp: 1000, SuggestionID: "s-1"},
		{Kind: EventSuggestionSnoozed, Timestamp: 2000, SuggestionID: "s-1"},
		{Kind: EventEnd, Timestamp: 3000},
	}

	assert.Equal(t, int64(3000), CalculateDurationMillis(events, 9000))
}

func TestCalculateDurationNowBeforeStart(t *testing.T) {
	events := []SessionEvent{
		{Kind: EventStart, Timestamp: 5000},
	}

	// Caller's clock is behind the session start; never negative.
	assert.Equal(t, int64(0), CalculateDurationMillis(events, 2000))
}

func TestClipSegments(t *testing.T) {
	segments := []Segment{
		{StartMillis: 0, EndMillis: 1000},
		{StartMillis: 2000, EndMillis: 5000},
		{StartMillis: 9000, EndMillis: 12000},
	}

	assert.Equal(t, int64(3500), ClipSegments(segments, 500, 10000))
	assert.Equal(t, int64(0), ClipSegments(segments, 13000, 20000))
	assert.Equal(t, int64(7000), ClipSegments(segments, 0, 12000))
}
