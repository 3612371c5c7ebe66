// Package control watches the .sagan signals directory for operator
// control files. Dropping a "pause" file holds scheduling between
// tasks; a "kill" file stops the loop after the current task.
package control

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// SignalWatcher watches for pause/kill control files.
type SignalWatcher struct {
	signalsDir string

	mu          sync.RWMutex
	stopSignal  bool
	pauseSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalWatcher creates a watcher over <baseDir>/.sagan/signals.
// If the filesystem watcher cannot be started, signal checks fall back
// to polling the directory.
func NewSignalWatcher(baseDir string) (*SignalWatcher, error) {
	signalsDir := filepath.Join(baseDir, ".sagan", "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	w := &SignalWatcher{
		signalsDir: signalsDir,
		done:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - ShouldStop/ShouldPause poll instead
		return w, nil
	}
	w.watcher = watcher
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		w.watcher = nil
		return w, nil
	}
	go w.watchSignals()

	return w, nil
}

// watchSignals monitors the signals directory for kill/pause files.
func (w *SignalWatcher) watchSignals() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			created := event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0
			removed := event.Op&fsnotify.Remove != 0
			base := filepath.Base(event.Name)
			w.mu.Lock()
			switch base {
			case "kill":
				if created {
					w.stopSignal = true
				}
			case "pause":
				if created {
					w.pauseSignal = true
				} else if removed {
					w.pauseSignal = false
				}
			}
			w.mu.Unlock()
		case <-w.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// ShouldStop reports whether a kill signal has been seen.
func (w *SignalWatcher) ShouldStop() bool {
	w.mu.RLock()
	if w.stopSignal {
		w.mu.RUnlock()
		return true
	}
	usePolling := w.watcher == nil
	w.mu.RUnlock()

	if usePolling {
		return w.fileExists("kill")
	}
	return false
}

// ShouldPause reports whether a pause signal is in effect.
func (w *SignalWatcher) ShouldPause() bool {
	w.mu.RLock()
	if w.pauseSignal {
		w.mu.RUnlock()
		return true
	}
	usePolling := w.watcher == nil
	w.mu.RUnlock()

	if usePolling {
		return w.fileExists("pause")
	}
	return false
}

// fileExists checks for a signal file directly.
func (w *SignalWatcher) fileExists(name string) bool {
	_, err := os.Stat(filepath.Join(w.signalsDir, name))
	return err == nil
}

// Clear removes all signal files and resets internal state.
func (w *SignalWatcher) Clear() {
	w.mu.Lock()
	w.stopSignal = false
	w.pauseSignal = false
	w.mu.Unlock()
	os.Remove(filepath.Join(w.signalsDir, "kill"))
	os.Remove(filepath.Join(w.signalsDir, "pause"))
}

// Close stops the watcher.
func (w *SignalWatcher) Close() error {
	close(w.done)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
