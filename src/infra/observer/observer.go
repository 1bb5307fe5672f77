package observer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ScanQueue is the part of the scan coordinator the observer drives. Queued
// requests are debounced there, so the observer forwards events raw.
type ScanQueue interface {
	QueueDebouncedScan()
}

// Observer watches the source folders for file changes and queues a library
// scan whenever audio files appear, change or vanish.
type Observer struct {
	watcher *fsnotify.Watcher
	queue   ScanQueue

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

// NewObserver creates a new filesystem observer.
func NewObserver(queue ScanQueue) (*Observer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Observer{
		watcher: watcher,
		queue:   queue,
		stop:    make(chan struct{}),
	}, nil
}

// Start begins watching the given folders and their subfolders.
func (o *Observer) Start(ctx context.Context, folders []string) error {
	for _, folder := range folders {
		if err := o.addTree(folder); err != nil {
			slog.Warn("Cannot watch source folder", "folder", folder, "error", err)
		}
	}

	o.mu.Lock()
	o.running = true
	o.mu.Unlock()

	go o.watchLoop(ctx)
	slog.Info("Filesystem observer started", "folders", len(folders))
	return nil
}

// Stop stops the observer.
func (o *Observer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.running = false
	close(o.stop)
	o.watcher.Close()
	slog.Info("Filesystem observer stopped")
}

// addTree registers a folder and every subfolder with the watcher. fsnotify
// has no recursive mode.
func (o *Observer) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("Skipping unwatchable entry", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return o.watcher.Add(path)
	})
}

func (o *Observer) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-o.watcher.Events:
			if !ok {
				return
			}
			o.handleEvent(event)

		case err, ok := <-o.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Filesystem observer error", "error", err)

		case <-o.stop:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (o *Observer) handleEvent(event fsnotify.Event) {
	// New directories need their own watch before their files produce events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := o.addTree(event.Name); err == nil {
				slog.Debug("Watching new folder", "path", event.Name)
			}
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !isAudioFile(event.Name) && event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	slog.Debug("Filesystem change, queueing scan", "path", event.Name, "op", event.Op.String())
	o.queue.QueueDebouncedScan()
}

func isAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".flac", ".ogg", ".m4a", ".wav":
		return true
	}
	return false
}
