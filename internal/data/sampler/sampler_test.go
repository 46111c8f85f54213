package sampler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan Sample, n int) []Sample {
	t.Helper()
	var out []Sample
	for len(out) < n {
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d of %d samples", len(out), n)
			}
			out = append(out, s)
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out after %d of %d samples", len(out), n)
		}
	}
	return out
}

func TestReplayPlaysScriptInOrder(t *testing.T) {
	r := NewReplaySampler([]ScriptEntry{
		{PackageName: "a", AtMillis: 0},
		{PackageName: "a", AtMillis: 1000},
		{PackageName: "", AtMillis: 2000},
		{PackageName: "b", AtMillis: 3000},
	})

	ch, err := r.Start(context.Background())
	require.NoError(t, err)

	samples := collect(t, ch, 4)
	assert.Equal(t, "a", samples[0].PackageName)
	assert.Equal(t, "a", samples[1].PackageName)
	assert.NotEqual(t, samples[0].Generation, samples[1].Generation,
		"reconfirmation bumps the generation")
	assert.Equal(t, "", samples[2].PackageName)
	assert.Equal(t, int64(3000), samples[3].AtMillis)

	_, open := <-ch
	assert.False(t, open, "channel closes at end of script")
}

func TestReplayIsRestartable(t *testing.T) {
	r := NewReplaySampler([]ScriptEntry{{PackageName: "a", AtMillis: 0}})

	for i := 0; i < 2; i++ {
		ch, err := r.Start(context.Background())
		require.NoError(t, err)
		samples := collect(t, ch, 1)
		assert.Equal(t, "a", samples[0].PackageName)
	}
}

func TestReplayStopsOnCancel(t *testing.T) {
	entries := make([]ScriptEntry, 100)
	for i := range entries {
		entries[i] = ScriptEntry{PackageName: "a", AtMillis: int64(i) * 1000}
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := NewReplaySampler(entries).Start(ctx)
	require.NoError(t, err)

	collect(t, ch, 1)
	cancel()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel did not close after cancel")
		}
	}
}

func TestReplayRebaseStampsEmissionTime(t *testing.T) {
	r := NewReplaySampler([]ScriptEntry{
		{PackageName: "a", AtMillis: 0},
		{PackageName: "b", AtMillis: 50},
	}).Paced(1).Rebase()

	before := time.Now().UnixMilli()
	ch, err := r.Start(context.Background())
	require.NoError(t, err)

	samples := collect(t, ch, 2)
	after := time.Now().UnixMilli()

	for _, s := range samples {
		assert.GreaterOrEqual(t, s.AtMillis, before)
		assert.LessOrEqual(t, s.AtMillis, after)
	}
	assert.GreaterOrEqual(t, samples[1].AtMillis, samples[0].AtMillis)
}

func TestLoadReplayScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"packageName": "com.example.feed", "atMillis": 0},
		{"packageName": "", "atMillis": 5000}
	]`), 0644))

	r, err := LoadReplayScript(path)
	require.NoError(t, err)

	ch, err := r.Start(context.Background())
	require.NoError(t, err)
	samples := collect(t, ch, 2)
	assert.Equal(t, "com.example.feed", samples[0].PackageName)
	assert.Equal(t, int64(5000), samples[1].AtMillis)

	_, err = LoadReplayScript(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestChannelSamplerPushDelivers(t *testing.T) {
	c := NewChannelSampler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.Start(ctx)
	require.NoError(t, err)

	c.Push("a", 1000)
	c.Push("a", 2000)
	c.Push("", 3000)

	samples := collect(t, ch, 3)
	assert.Equal(t, "a", samples[0].PackageName)
	assert.Greater(t, samples[1].Generation, samples[0].Generation)
	assert.Equal(t, "", samples[2].PackageName)
}

func TestChannelSamplerClosesOnCancel(t *testing.T) {
	c := NewChannelSampler()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := c.Start(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("channel did not close after cancel")
	}
}
