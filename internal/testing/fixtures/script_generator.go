// Package fixtures generates replay scripts for tests and demos.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/halfmoor/go-screentime-monitor/internal/data/sampler"
)

// ScriptBuilder accumulates foreground samples into a replay script.
// Times are relative to the builder's start and advance monotonically.
type ScriptBuilder struct {
	startMillis int64
	atMillis    int64
	entries     []sampler.ScriptEntry
}

// NewScriptBuilder starts a script at the given timestamp.
func NewScriptBuilder(startMillis int64) *ScriptBuilder {
	return &ScriptBuilder{startMillis: startMillis, atMillis: startMillis}
}

// Foreground records pkg as foreground at the current position.
func (b *ScriptBuilder) Foreground(pkg string) *ScriptBuilder {
	b.entries = append(b.entries, sampler.ScriptEntry{PackageName: pkg, AtMillis: b.atMillis})
	return b
}

// Dwell advances time while pkg stays foreground, emitting a
// reconfirmation sample every intervalMillis like a polling platform
// source would.
func (b *ScriptBuilder) Dwell(pkg string, durationMillis, intervalMillis int64) *ScriptBuilder {
	if intervalMillis <= 0 {
		intervalMillis = 1000
	}
	end := b.atMillis + durationMillis
	for b.atMillis < end {
		step := intervalMillis
		if b.atMillis+step > end {
			step = end - b.atMillis
		}
		b.atMillis += step
		b.entries = append(b.entries, sampler.ScriptEntry{PackageName: pkg, AtMillis: b.atMillis})
	}
	return b
}

// Gap advances time with nothing in the foreground.
func (b *ScriptBuilder) Gap(durationMillis int64) *ScriptBuilder {
	b.entries = append(b.entries, sampler.ScriptEntry{PackageName: "", AtMillis: b.atMillis})
	b.atMillis += durationMillis
	return b
}

// SwitchTo changes the foreground app after a brief gap, modeling the
// launcher transition between two apps.
func (b *ScriptBuilder) SwitchTo(pkg string, transitionMillis int64) *ScriptBuilder {
	b.atMillis += transitionMillis
	return b.Foreground(pkg)
}

// Entries returns the accumulated script.
func (b *ScriptBuilder) Entries() []sampler.ScriptEntry {
	return b.entries
}

// WriteFile writes the script as JSON, creating parent directories.
func (b *ScriptBuilder) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create script directory: %w", err)
	}
	data, err := sonic.MarshalIndent(b.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// TypicalEvening builds a script with two target apps, a brief switch
// away inside the grace period, and a longer break that ends the first
// session. Useful as demo input for the watch command.
func TypicalEvening(startMillis int64, target1, target2, other string) *ScriptBuilder {
	return NewScriptBuilder(startMillis).
		Foreground(target1).
		Dwell(target1, 3*60*1000, 5000).
		SwitchTo(other, 1000).
		SwitchTo(target1, 3000). // back within grace
		Dwell(target1, 2*60*1000, 5000).
		SwitchTo(other, 1000).
		Gap(60*1000). // grace lapses, session ends
		SwitchTo(target2, 1000).
		Dwell(target2, 5*60*1000, 5000)
}
