// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tail

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Notifier calls wake whenever the watched file is written or
// re-created. It watches the parent directory so it survives the file
// being deleted and created again. wake runs on the notifier's own
// goroutine and must not block; the collector passes a function that
// queues a poll on its reactor.
//
// Notifications are advisory. A dropped or coalesced event costs at
// most one poll interval of latency.
type Notifier struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
	stopped   chan struct{}
}

// Watch starts a Notifier for path.
func Watch(path string, wake func(), logger *slog.Logger) (*Notifier, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absolute)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(absolute), err)
	}

	n := &Notifier{
		path:    absolute,
		watcher: watcher,
		logger:  logger.With("component", "tail-notify", "path", absolute),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go n.loop(wake)
	return n, nil
}

func (n *Notifier) loop(wake func()) {
	defer close(n.stopped)
	for {
		select {
		case <-n.done:
			return
		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != n.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				wake()
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			n.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit. Safe to
// call more than once.
func (n *Notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.done)
		err = n.watcher.Close()
		<-n.stopped
	})
	return err
}
