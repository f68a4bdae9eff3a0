// Package editorsupport wires filesystem change notifications into the
// incremental parser, for hosts that want a live-reparsing story model
// without driving UpdateDocument themselves from an editor's own buffer
// events.
package editorsupport

import (
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/writewhisker/whisker-core/ast"
	"github.com/writewhisker/whisker-core/incremental"
	"github.com/writewhisker/whisker-core/parse"
)

// ChangeHandler is invoked after a watched file is re-parsed in
// response to an fsnotify event.
type ChangeHandler func(uri string, story *ast.Story)

// Watcher re-parses a set of WLS source files whenever fsnotify reports
// them as written, using the incremental Controller's full-document
// entry point (a filesystem write event carries no byte-range
// information, so every change goes through ParseDocument rather than
// UpdateDocument — targeted re-parsing is for in-editor keystrokes, not
// external file writes).
type Watcher struct {
	ctrl    *incremental.Controller
	fsw     *fsnotify.Watcher
	onChange ChangeHandler
	log     *logrus.Logger
	opts    []parse.Option
	done    chan struct{}
}

// NewWatcher creates a Watcher backed by ctrl. onChange may be nil.
func NewWatcher(ctrl *incremental.Controller, onChange ChangeHandler, opts ...parse.Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		ctrl:     ctrl,
		fsw:      fsw,
		onChange: onChange,
		log:      defaultLogger(),
		opts:     opts,
		done:     make(chan struct{}),
	}, nil
}

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// Watch adds path to the watch set and performs an initial parse.
func (w *Watcher) Watch(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	story, _ := w.ctrl.ParseDocument(path, string(content), w.opts...)
	if w.onChange != nil {
		w.onChange(path, story)
	}
	return w.fsw.Add(path)
}

// Run processes fsnotify events until Stop is called or the underlying
// watcher is closed. It is intended to run in its own goroutine.
func (w *Watcher) Run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleWrite(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("editorsupport: watch error")
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleWrite(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		w.log.WithError(err).WithField("path", path).Warn("editorsupport: re-read failed")
		return
	}
	story, _ := w.ctrl.ParseDocument(path, string(content), w.opts...)
	if w.onChange != nil {
		w.onChange(path, story)
	}
}

// Stop terminates Run and closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsw.Close()
}
