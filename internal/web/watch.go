package web

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/psychodicenamic/dicesim/internal/game"
)

// ArchetypeWatcher reloads the archetype file when it changes and hands the
// new catalog to the server. A file that fails to parse leaves the current
// catalog in place.
type ArchetypeWatcher struct {
	path     string
	server   *Server
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	reloads int
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewArchetypeWatcher watches path on behalf of s.
func NewArchetypeWatcher(path string, s *Server) (*ArchetypeWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	return &ArchetypeWatcher{
		path:     abs,
		server:   s,
		watcher:  watcher,
		logger:   s.logger,
		debounce: 200 * time.Millisecond, // editors save in several steps
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start watches the file's directory, so saves that replace the file by
// rename are seen too. It does not block.
func (aw *ArchetypeWatcher) Start(ctx context.Context) error {
	if err := aw.watcher.Add(filepath.Dir(aw.path)); err != nil {
		return err
	}
	aw.logger.Info("watching archetypes", zap.String("path", aw.path))
	go aw.run(ctx)
	return nil
}

// Stop ends the watch and waits for the loop to exit.
func (aw *ArchetypeWatcher) Stop() {
	close(aw.stopCh)
	<-aw.doneCh
	aw.watcher.Close()
}

// Reloads reports how many times the catalog was replaced.
func (aw *ArchetypeWatcher) Reloads() int {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.reloads
}

func (aw *ArchetypeWatcher) run(ctx context.Context) {
	defer close(aw.doneCh)

	timer := time.NewTimer(aw.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-aw.stopCh:
			return
		case event, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != aw.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(aw.debounce)
		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			aw.logger.Warn("archetype watcher", zap.Error(err))
		case <-timer.C:
			aw.reload()
		}
	}
}

func (aw *ArchetypeWatcher) reload() {
	catalog, err := game.LoadCatalog(aw.path)
	if err != nil {
		aw.logger.Warn("reload archetypes", zap.String("path", aw.path), zap.Error(err))
		return
	}
	aw.server.SetCatalog(catalog)
	aw.mu.Lock()
	aw.reloads++
	aw.mu.Unlock()
	aw.logger.Info("archetypes reloaded", zap.Int("count", catalog.Len()))
}
