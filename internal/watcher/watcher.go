// Package watcher guards the SQLite database file: if the file disappears
// while the daemon is running, the onDelete callback is invoked so the store
// can be reopened with a fresh schema.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Guard monitors the database file for deletion. It watches the parent
// directory, since fsnotify cannot watch a path that no longer exists.
type Guard struct {
	dbPath     string
	parentPath string
	onDelete   func()
	watcher    *fsnotify.Watcher
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	running    bool
	debounce   time.Duration
}

// New creates a Guard for the database at dbPath. The onDelete callback runs
// when the file is removed or renamed away.
func New(dbPath string, onDelete func()) (*Guard, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Guard{
		dbPath:     dbPath,
		parentPath: filepath.Dir(dbPath),
		onDelete:   onDelete,
		watcher:    fsw,
		ctx:        ctx,
		cancel:     cancel,
		debounce:   100 * time.Millisecond,
	}, nil
}

// Start begins watching. Safe to call once; returns immediately.
func (g *Guard) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return nil
	}
	if err := g.watcher.Add(g.parentPath); err != nil {
		return err
	}
	g.running = true
	go g.loop()
	log.Debug().Str("path", g.dbPath).Msg("database file guard started")
	return nil
}

// Stop ends watching and releases the underlying watcher.
func (g *Guard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return
	}
	g.running = false
	g.cancel()
	_ = g.watcher.Close()
}

func (g *Guard) loop() {
	for {
		select {
		case <-g.ctx.Done():
			return
		case event, ok := <-g.watcher.Events:
			if !ok {
				return
			}
			if event.Name != g.dbPath {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: editors and sqlite checkpoints can emit bursts
			// where the file briefly disappears.
			time.Sleep(g.debounce)
			if _, err := os.Stat(g.dbPath); err == nil {
				continue
			}
			log.Warn().Str("path", g.dbPath).Msg("database file removed")
			g.onDelete()
		case err, ok := <-g.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("database file guard error")
		}
	}
}
