// Package filewatcher reports new and changed files in a drop directory.
package filewatcher

import (
	"context"
	"log"
	"strings"

	"vizora/ports"

	"github.com/fsnotify/fsnotify"
)

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
type FSNotifyWatcher struct {
	watcher *fsnotify.Watcher
	accept  func(path string) bool
}

// NewFSNotifyWatcher watches only paths accept approves. A nil accept passes
// everything except editor and OS temp files.
func NewFSNotifyWatcher(accept func(path string) bool) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if accept == nil {
		accept = func(string) bool { return true }
	}
	return &FSNotifyWatcher{watcher: w, accept: accept}, nil
}

// Watch emits events for dir until ctx is done or the watcher is stopped.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 100)
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
				if isTempFile(event.Name) || !w.accept(event.Name) {
					continue
				}

				var kind ports.FileEventType
				switch {
				case event.Has(fsnotify.Create):
					kind = ports.FileCreated
				case event.Has(fsnotify.Write):
					kind = ports.FileModified
				case event.Has(fsnotify.Remove):
					kind = ports.FileDeleted
				default:
					continue
				}

				select {
				case events <- ports.FileEvent{Path: event.Name, Type: kind}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[FileWatcher] %v", err)
			}
		}
	}()
	return events, nil
}

func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

func isTempFile(path string) bool {
	base := path
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		base = path[i+1:]
	}
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") || strings.HasSuffix(base, "~")
}
