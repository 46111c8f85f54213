package track

import (
	"sync"

	"github.com/halfmoor/go-screentime-monitor/internal/core/overlay"
)

// ViewState is the externally visible snapshot of the tracking loop.
// UI layers read it; only the orchestrator writes it.
type ViewState struct {
	OverlayState overlay.State

	// ActivePackage is the current foreground package, target or not.
	ActivePackage string

	// ElapsedMillis is the running session elapsed time for the tracked
	// package, 0 when nothing is tracked.
	ElapsedMillis int64

	TodayThisTargetMillis int64
	TodayAllTargetsMillis int64
	TodayPerPackage       map[string]int64

	SuggestionShowing bool
	SuggestionID      string

	UpdatedAtMillis int64
}

// StateManager manages the view state in a thread-safe manner.
type StateManager struct {
	mu   sync.RWMutex
	view ViewState
}

func NewStateManager() *StateManager {
	return &StateManager{}
}

// View returns a copy of the current view state.
func (sm *StateManager) View() ViewState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	v := sm.view
	if sm.view.TodayPerPackage != nil {
		v.TodayPerPackage = make(map[string]int64, len(sm.view.TodayPerPackage))
		for pkg, ms := range sm.view.TodayPerPackage {
			v.TodayPerPackage[pkg] = ms
		}
	}
	return v
}

// Update applies fn to the view under the write lock.
func (sm *StateManager) Update(fn func(*ViewState)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	fn(&sm.view)
}
