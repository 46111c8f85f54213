package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfmoor/go-screentime-monitor/internal/data/sampler"
)

func TestScriptBuilderMonotonicTimestamps(t *testing.T) {
	entries := TypicalEvening(1_000_000, "app.a", "app.b", "app.other").Entries()
	require.NotEmpty(t, entries)

	prev := int64(0)
	for _, e := range entries {
		assert.GreaterOrEqual(t, e.AtMillis, prev)
		prev = e.AtMillis
	}
}

func TestScriptBuilderDwellEmitsReconfirmations(t *testing.T) {
	entries := NewScriptBuilder(0).
		Foreground("app.a").
		Dwell("app.a", 10_000, 2000).
		Entries()

	// Initial sample plus five reconfirmations.
	require.Len(t, entries, 6)
	assert.Equal(t, int64(10_000), entries[5].AtMillis)
	for _, e := range entries {
		assert.Equal(t, "app.a", e.PackageName)
	}
}

func TestWriteFileLoadsAsReplayScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts", "evening.json")
	b := TypicalEvening(0, "app.a", "app.b", "app.other")
	require.NoError(t, b.WriteFile(path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	replay, err := sampler.LoadReplayScript(path)
	require.NoError(t, err)
	assert.NotNil(t, replay)
}
