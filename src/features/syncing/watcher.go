package syncing

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arendse/melodium/src/features/config"
	"github.com/arendse/melodium/src/music"
)

const defaultDebounceSecs = 5

// LocalSourceLister lists the local sources the watcher should cover.
type LocalSourceLister interface {
	GetLocalSources(ctx context.Context) ([]*music.LocalSource, error)
}

// Watcher monitors the enabled local source directories and triggers a
// local sync after a quiet period, so a batch of copied files results
// in a single run.
type Watcher struct {
	service       *Service
	sources       LocalSourceLister
	configManager *config.Manager

	mu            sync.Mutex
	watcher       *fsnotify.Watcher
	debounceTimer *time.Timer
	running       bool
	stopChan      chan struct{}
}

// NewWatcher creates a new library watcher
func NewWatcher(service *Service, sources LocalSourceLister, cfgManager *config.Manager) *Watcher {
	return &Watcher{
		service:       service,
		sources:       sources,
		configManager: cfgManager,
	}
}

// IsRunning reports whether the watcher is active
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start begins watching every enabled local source directory, including
// subdirectories
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	sources, err := w.sources.GetLocalSources(context.Background())
	if err != nil {
		watcher.Close()
		return err
	}
	for _, source := range sources {
		if !source.Enabled {
			continue
		}
		if err := addRecursive(watcher, source.Directory); err != nil {
			slog.Error("Failed to watch source directory", "directory", source.Directory, "error", err)
			continue
		}
		slog.Info("Watching source directory", "id", source.ID, "directory", source.Directory)
	}

	w.watcher = watcher
	w.stopChan = make(chan struct{})
	w.running = true
	go w.watchLoop(watcher, w.stopChan)

	slog.Info("Library watcher started")
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	slog.Info("Stopping library watcher")
	w.running = false
	close(w.stopChan)

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.watcher.Close()
	w.watcher = nil
}

// watchLoop processes file system events
func (w *Watcher) watchLoop(watcher *fsnotify.Watcher, stopChan chan struct{}) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Library watcher error", "error", err)

		case <-stopChan:
			return
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	// New directories must be added to the watch set themselves.
	if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
		if err := addRecursive(watcher, event.Name); err != nil {
			slog.Error("Failed to watch new directory", "directory", event.Name, "error", err)
		}
		w.resetDebounce()
		return
	}

	if !isSupportedFile(event.Name) {
		return
	}
	slog.Debug("Detected library change", "file", event.Name, "op", event.Op.String())
	w.resetDebounce()
}

// resetDebounce starts or restarts the quiet-period timer
func (w *Watcher) resetDebounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay(), func() {
		slog.Info("Library changed, triggering local sync")
		w.service.SyncLocal()
	})
}

func (w *Watcher) debounceDelay() time.Duration {
	secs := w.configManager.Get().Sync.WatcherDebounce
	if secs <= 0 {
		secs = defaultDebounceSecs
	}
	return time.Duration(secs * float64(time.Second))
}

// isSupportedFile checks if the file is a supported audio format
func isSupportedFile(filePath string) bool {
	return strings.ToLower(filepath.Ext(filePath)) == ".mp3"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// addRecursive watches the directory and every subdirectory under it
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
