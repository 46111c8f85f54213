package formatter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfmoor/go-screentime-monitor/internal/core/session"
)

func sampleSessions() []*session.Session {
	return []*session.Session{
		{
			PackageName: "com.example.reader",
			Events: []session.SessionEvent{
				{Kind: session.EventStart, Timestamp: 1_000_000},
				{Kind: session.EventPause, Timestamp: 1_060_000},
				{Kind: session.EventResume, Timestamp: 1_063_000},
				{Kind: session.EventEnd, Timestamp: 1_120_000},
			},
		},
		{
			PackageName: "com.example.video",
			Events: []session.SessionEvent{
				{Kind: session.EventStart, Timestamp: 1_200_000},
				{Kind: session.EventSuggestionShown, Timestamp: 1_250_000, SuggestionID: "s1"},
				{Kind: session.EventSuggestionSnoozed, Timestamp: 1_255_000, SuggestionID: "s1"},
			},
		},
	}
}

func TestBuildReport(t *testing.T) {
	r := BuildReport(sampleSessions(), 0, 1_300_000)

	require.Len(t, r.Sessions, 2)

	closed := r.Sessions[0]
	assert.Equal(t, "com.example.reader", closed.Package)
	assert.Equal(t, int64(117_000), closed.DurationMillis)
	assert.Equal(t, 1, closed.Pauses)
	assert.False(t, closed.Active)
	assert.NotEmpty(t, closed.End)

	open := r.Sessions[1]
	assert.True(t, open.Active)
	assert.Empty(t, open.End)
	assert.Equal(t, int64(100_000), open.DurationMillis)
	assert.Equal(t, 1, open.Suggestions)

	assert.Equal(t, int64(217_000), r.TotalMillis)
	// Usage sorts by duration descending.
	require.Len(t, r.Usage, 2)
	assert.Equal(t, "com.example.reader", r.Usage[0].Package)
}

func TestBuildReportClipsToWindow(t *testing.T) {
	// Window starts mid-session: only the tail counts.
	r := BuildReport(sampleSessions(), 1_100_000, 1_300_000)

	require.Len(t, r.Sessions, 2)
	assert.Equal(t, int64(20_000), r.Sessions[0].DurationMillis)
	assert.Equal(t, int64(100_000), r.Sessions[1].DurationMillis)

	// Window entirely before any activity drops everything.
	empty := BuildReport(sampleSessions(), 0, 500_000)
	assert.Empty(t, empty.Sessions)
	assert.Zero(t, empty.TotalMillis)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(&buf)
	require.NoError(t, f.Format(BuildReport(sampleSessions(), 0, 1_300_000)))

	out := buf.String()
	assert.Contains(t, out, "com.example.reader")
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "Total:")
}

func TestJSONFormatterRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)
	require.NoError(t, f.Format(BuildReport(sampleSessions(), 0, 1_300_000)))

	var decoded Report
	require.NoError(t, sonic.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Sessions, 2)
	assert.Equal(t, int64(217_000), decoded.TotalMillis)
}

func TestCSVFormatterParses(t *testing.T) {
	var buf bytes.Buffer
	f := NewCSVFormatter(&buf)
	require.NoError(t, f.Format(BuildReport(sampleSessions(), 0, 1_300_000)))

	r := csv.NewReader(strings.NewReader(buf.String()))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	// Session header + 2 rows + usage header + 2 rows.
	assert.Len(t, records, 6)
	assert.Equal(t, "package", records[0][0])
}

func TestSummaryFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewSummaryFormatter(&buf)
	require.NoError(t, f.Format(BuildReport(sampleSessions(), 0, 1_300_000)))
	assert.Contains(t, buf.String(), "1 active")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New("xml", &bytes.Buffer{})
	assert.Error(t, err)

	for _, format := range []string{"table", "json", "csv", "summary", ""} {
		f, err := New(format, &bytes.Buffer{})
		require.NoError(t, err)
		assert.NotNil(t, f)
	}
}
