// Package watch reports changes to scenario files so they can be resolved
// again.
package watch

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches scenario files and the shared files they depend on.
//
// Parent directories are watched rather than the files themselves, so a
// file replaced by an editor's atomic rename keeps being tracked.
type Watcher struct {
	mu sync.RWMutex

	fsWatcher *fsnotify.Watcher

	// scenarios is the set of scenario files being watched.
	scenarios map[string]bool

	// shared files (such as the config file) affect every scenario.
	shared map[string]bool

	// dirs is the set of directories registered with fsWatcher.
	dirs map[string]bool

	// Events receives change notifications.
	Events chan Event

	// Errors receives watcher errors.
	Errors chan error

	done chan struct{}
}

// Event represents a change to a watched file.
type Event struct {
	// File is the file that changed.
	File string

	// Op is the operation (write, create, ...).
	Op fsnotify.Op

	// Affected lists the scenario files to resolve again, sorted.
	Affected []string
}

// NewWatcher creates a new file watcher.
func NewWatcher() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		scenarios: make(map[string]bool),
		shared:    make(map[string]bool),
		dirs:      make(map[string]bool),
		Events:    make(chan Event, 100),
		Errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}

	go w.run()

	return w, nil
}

// Add watches a scenario file.
func (w *Watcher) Add(file string) error {
	return w.add(file, w.scenarios)
}

// AddShared watches a file whose changes affect every scenario.
func (w *Watcher) AddShared(file string) error {
	return w.add(file, w.shared)
}

func (w *Watcher) add(file string, set map[string]bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	absPath, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("getting absolute path: %w", err)
	}
	if set[absPath] {
		return nil
	}

	dir := filepath.Dir(absPath)
	if !w.dirs[dir] {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	set[absPath] = true
	return nil
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// WatchedFiles returns the scenario files being watched, sorted.
func (w *Watcher) WatchedFiles() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return sortedKeys(w.scenarios)
}

// Affected returns the scenario files affected by a change to file.
func (w *Watcher) Affected(file string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	absPath, _ := filepath.Abs(file)
	switch {
	case w.shared[absPath]:
		return sortedKeys(w.scenarios)
	case w.scenarios[absPath]:
		return []string{absPath}
	default:
		return nil
	}
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if affected := w.Affected(event.Name); len(affected) > 0 {
				abs, _ := filepath.Abs(event.Name)
				select {
				case w.Events <- Event{File: abs, Op: event.Op, Affected: affected}:
				case <-w.done:
					return
				}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		}
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
