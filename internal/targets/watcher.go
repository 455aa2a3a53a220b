package targets

import (
	"github.com/fsnotify/fsnotify"

	"github.com/penwyp/go-x-monitor/internal/util"
)

// FileEvent reports one change to a target file.
type FileEvent struct {
	Path      string
	Operation string
}

// Watcher reports create/write events for target files in one directory so
// dropped or edited files can be re-applied live.
type Watcher struct {
	watcher *fsnotify.Watcher
	events  chan FileEvent
}

// NewWatcher starts watching dir for target-file changes.
func NewWatcher(dir string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: watcher,
		events:  make(chan FileEvent, 100),
	}
	go w.processEvents()
	return w, nil
}

func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				close(w.events)
				return
			}

			if !isTargetFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			select {
			case w.events <- FileEvent{Path: event.Name, Operation: event.Op.String()}:
			default:
				// Drop events rather than block the fsnotify pump.
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				close(w.events)
				return
			}
			util.LogError("target file watch error: " + err.Error())
		}
	}
}

// Events is the stream of target-file changes.
func (w *Watcher) Events() <-chan FileEvent {
	return w.events
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
