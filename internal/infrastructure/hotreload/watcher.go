// Package hotreload watches template directories during development and
// triggers a reload when files change
package hotreload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces editor save bursts into one reload
const DefaultDebounce = 250 * time.Millisecond

// Watcher calls OnChange after files with a watched extension change
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions map[string]bool
	onChange   func(path string)
	debounce   time.Duration
	logger     *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
	last  string
}

// NewWatcher creates a watcher for the given file extensions, e.g. ".html"
func NewWatcher(logger *zap.Logger, onChange func(path string), extensions ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[ext] = true
	}

	return &Watcher{
		watcher:    w,
		extensions: exts,
		onChange:   onChange,
		debounce:   DefaultDebounce,
		logger:     logger.Named("hotreload"),
	}, nil
}

// AddWatchPath watches root and every directory below it
func (fw *Watcher) AddWatchPath(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn("Failed to watch directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		fw.logger.Debug("Watching directory", zap.String("path", path))
		return nil
	})
}

// Run processes events until ctx is done, then closes the watcher
func (fw *Watcher) Run(ctx context.Context) {
	defer fw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			fw.mu.Lock()
			if fw.timer != nil {
				fw.timer.Stop()
			}
			fw.mu.Unlock()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

// handleEvent debounces relevant events into a single OnChange call
func (fw *Watcher) handleEvent(event fsnotify.Event) {
	if strings.HasSuffix(event.Name, "~") || strings.HasSuffix(event.Name, ".tmp") {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !fw.extensions[filepath.Ext(event.Name)] {
		return
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.last = event.Name
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, func() {
		fw.mu.Lock()
		path := fw.last
		fw.mu.Unlock()

		fw.logger.Info("Template changed", zap.String("path", path))
		fw.onChange(path)
	})
}
