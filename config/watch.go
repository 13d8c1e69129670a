// File: config/watch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Watch reloads a Topology file on change, the way control's hot-reload
// hooks propagate config mutations, but scoped to one file via fsnotify
// instead of the process-wide listener list.

package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Watcher watches a single topology file and invokes onChange with each
// successfully reparsed Topology.
type Watcher struct {
	w   *fsnotify.Watcher
	log *zap.SugaredLogger
}

// Watch starts watching path's containing directory (files are frequently
// replaced via rename-on-write, which fsnotify only reports at the
// directory level) and calls onChange whenever path itself is written.
func Watch(path string, onChange func(*Topology), log *zap.SugaredLogger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config: new watcher")
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "config: watch %s", path)
	}
	watcher := &Watcher{w: fw, log: log}
	go watcher.loop(path, onChange)
	return watcher, nil
}

func (w *Watcher) loop(path string, onChange func(*Topology)) {
	target := filepath.Clean(path)
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			t, err := LoadTopology(path)
			if err != nil {
				w.log.Errorw("config reload failed", "path", path, "error", err)
				continue
			}
			onChange(t)
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Errorw("config watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error { return w.w.Close() }
