package settings

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/halfmoor/go-screentime-monitor/internal/util"
)

// debounceWindow absorbs editor write bursts (truncate+write+rename)
// into a single reload.
const debounceWindow = 200 * time.Millisecond

// Source serves the current settings and notifies on file changes.
type Source struct {
	path    string
	watcher *fsnotify.Watcher
	changes chan *Settings
	done    chan struct{}

	mu      sync.RWMutex
	current *Settings
}

// NewSource loads the config file and starts watching its directory.
// Watching the directory rather than the file itself survives the
// rename-based saves most editors do.
func NewSource(path string) (*Source, error) {
	initial, err := Load(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	s := &Source{
		path:    path,
		watcher: watcher,
		changes: make(chan *Settings, 4),
		done:    make(chan struct{}),
		current: initial,
	}
	go s.processEvents()
	return s, nil
}

// NewStaticSource wraps fixed settings with no file watching. Used by
// one-shot commands and tests.
func NewStaticSource(s *Settings) *Source {
	return &Source{
		changes: make(chan *Settings, 4),
		done:    make(chan struct{}),
		current: s,
	}
}

// Current returns the latest loaded settings.
func (s *Source) Current() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Changes delivers reloaded settings. The channel is buffered; when the
// consumer lags, intermediate values are dropped in favor of the newest.
func (s *Source) Changes() <-chan *Settings {
	return s.changes
}

func (s *Source) processEvents() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			s.reload()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("settings: watch error: " + err.Error())

		case <-s.done:
			return
		}
	}
}

func (s *Source) reload() {
	loaded, err := Load(s.path)
	if err != nil {
		// Keep the last good settings on a broken edit.
		util.LogErrorf("settings: reload failed, keeping previous: %v", err)
		return
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()

	for {
		select {
		case s.changes <- loaded:
			util.LogInfof("settings: reloaded from %s", s.path)
			return
		default:
			// Full buffer: evict the stalest pending value.
			select {
			case <-s.changes:
			default:
			}
		}
	}
}

// Close stops watching. The Changes channel stays open but quiet.
func (s *Source) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
