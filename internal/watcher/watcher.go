// Package watcher reports changes to a script tree with debouncing.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a script tree and signals when it changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	debounce  time.Duration
	onChange  chan struct{}
	errs      chan error
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	Root        string
	DebounceDur time.Duration
}

// DefaultConfig returns defaults for watching root.
func DefaultConfig(root string) Config {
	return Config{
		Root:        root,
		DebounceDur: 250 * time.Millisecond,
	}
}

// New creates a watcher for the tree at cfg.Root.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		root:      cfg.Root,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan struct{}, 1),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the root and every directory below it. Directories created
// later are added as they appear. The returned channel receives one signal
// per burst of changes.
func (w *Watcher) Start() (<-chan struct{}, error) {
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && hidden(p) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(p)
	})
	if err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", w.root, err)
	}

	go w.loop()

	return w.onChange, nil
}

// Errors returns watch errors. Only the latest unread error is kept.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !w.isRelevantEvent(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				w.addIfDir(event.Name)
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = true

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) addIfDir(p string) {
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return
	}
	_ = filepath.WalkDir(p, func(sub string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if hidden(sub) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(sub)
	})
}

// isRelevantEvent reports whether the event changes the set or content of
// scripts. Dot-files are not scripts and chmod alone changes nothing.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return !hidden(event.Name)
}

func hidden(p string) bool {
	return strings.HasPrefix(filepath.Base(p), ".")
}
