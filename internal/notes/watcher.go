package notes

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileOp describes what happened to a watched file.
type FileOp int

const (
	FileCreated FileOp = iota
	FileModified
	FileDeleted
)

// FileEvent is emitted when a markdown file under the notes root changes.
type FileEvent struct {
	AbsPath string
	Op      FileOp
}

// Watcher monitors the notes root for markdown file changes.
type Watcher struct {
	watcher *fsnotify.Watcher
}

// NewWatcher creates a new notes watcher.
func NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{watcher: w}, nil
}

// Watch starts monitoring the notes root (including subdirectories) and emits
// events for markdown files until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context, root string) (<-chan FileEvent, error) {
	// fsnotify does not recurse, so register every subdirectory.
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if len(info.Name()) > 1 && info.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events := make(chan FileEvent, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".md" {
					// New directories need to be added to the watch set.
					if event.Op&fsnotify.Create == fsnotify.Create {
						if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
							_ = w.watcher.Add(event.Name)
						}
					}
					continue
				}

				var op FileOp
				switch {
				case event.Op&fsnotify.Create == fsnotify.Create:
					op = FileCreated
				case event.Op&fsnotify.Write == fsnotify.Write:
					op = FileModified
				case event.Op&fsnotify.Remove == fsnotify.Remove:
					op = FileDeleted
				default:
					continue
				}

				select {
				case events <- FileEvent{AbsPath: event.Name, Op: op}:
				case <-ctx.Done():
					return
				}
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return events, nil
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
