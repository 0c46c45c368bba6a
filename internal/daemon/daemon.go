// Package daemon provides the auto-sync daemon that watches local
// collection directories and pushes changes to the remote document store.
//
// The daemon:
//  1. Performs an initial full push of every collection
//  2. Watches collection directories for record file changes
//  3. Debounces rapid changes and syncs affected records
//  4. Handles graceful shutdown
//
// Changes are queued while the auto-sync preference is off and flushed
// once it is turned back on. Overlapping full syncs are skipped rather
// than serialized: a new attempt is ignored while one is in flight.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grove-app/grove/internal/remote"
	"github.com/grove-app/grove/internal/store"
	"github.com/grove-app/grove/internal/syncstate"
	"github.com/grove-app/grove/internal/syncsvc"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long to wait before processing file
	// changes, batching rapid updates together.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// NewLogger builds a daemon logger. With a non-empty logFile the output
// goes to a size-rotated file; otherwise stderr.
func NewLogger(logFile string) *log.Logger {
	if logFile == "" {
		return log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}, "[daemon] ", log.LstdFlags)
}

// Daemon orchestrates file watching and remote synchronization.
type Daemon struct {
	dataDir string
	svc     *syncsvc.Service
	status  *syncstate.Store
	config  *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> queued at
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Daemon. Refuses to start when sync is not configured.
func New(dataDir string, svc *syncsvc.Service, status *syncstate.Store, config *Config) (*Daemon, error) {
	if !svc.Enabled() {
		return nil, remote.ErrNotConfigured
	}
	if dataDir == "" {
		return nil, fmt.Errorf("dataDir cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		dataDir:     dataDir,
		svc:         svc,
		status:      status,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// This blocks until ctx is cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting auto-sync daemon")

	if err := d.PerformFullSync(ctx); err != nil {
		d.config.Logger.Printf("Initial sync failed: %v", err)
	}

	for _, name := range store.Collections {
		dir := filepath.Join(d.dataDir, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", name, err)
		}
		if err := d.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s directory: %w", name, err)
		}
	}

	d.config.Logger.Printf("Watching %d collection directories under %s", len(store.Collections), d.dataDir)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// PerformFullSync pushes every local collection and the profile.
//
// Skipped when a sync is already in flight. Per-collection failures are
// logged and recorded in sync state without stopping the others.
func (d *Daemon) PerformFullSync(ctx context.Context) error {
	if d.status.State().Syncing {
		d.config.Logger.Println("Sync already in flight, skipping")
		return nil
	}

	d.status.SetSyncing(true)
	defer d.status.SetSyncing(false)

	d.config.Logger.Println("Performing full sync")

	var firstErr error
	for _, name := range store.Collections {
		c := store.OpenCollection(d.dataDir, name)
		records, err := c.Snapshot()
		if err != nil {
			d.config.Logger.Printf("Warning: failed to read %s: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := d.svc.UpsertCollection(ctx, name, records); err != nil {
			d.config.Logger.Printf("Warning: failed to sync %s: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
	}

	profile, err := store.LoadProfile(filepath.Join(d.dataDir, "profile.json"))
	if err == nil && !profile.IsZero() {
		if err := d.svc.SyncProfile(ctx, profile.Fields()); err != nil {
			d.config.Logger.Printf("Warning: failed to sync profile: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		d.status.SetError(firstErr.Error())
		return firstErr
	}

	d.status.ClearError()
	d.status.UpdateLastSync()
	d.config.Logger.Println("Full sync complete")
	return nil
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".json" || strings.HasSuffix(event.Name, ".tmp") {
				continue
			}

			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue drains queued file changes on a debounce ticker.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges syncs files that have settled past the debounce
// window. Changes stay queued while auto-sync is off.
func (d *Daemon) processPendingChanges() {
	if !d.status.State().AutoSync {
		return
	}

	d.changeQueueMu.Lock()
	ready := make([]string, 0, len(d.changeQueue))
	now := time.Now()
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) >= d.config.DebounceInterval {
			ready = append(ready, path)
			delete(d.changeQueue, path)
		}
	}
	d.changeQueueMu.Unlock()

	if len(ready) == 0 {
		return
	}

	synced := false
	for _, path := range ready {
		if err := d.syncRecordFile(path); err != nil {
			d.config.Logger.Printf("Error syncing %s: %v", path, err)
			d.status.SetError(err.Error())
			continue
		}
		synced = true
	}

	if synced {
		d.status.UpdateLastSync()
	}
}

// syncRecordFile pushes one changed record file, or deletes the remote
// document when the file is gone.
func (d *Daemon) syncRecordFile(path string) error {
	collection := filepath.Base(filepath.Dir(path))
	id := strings.TrimSuffix(filepath.Base(path), ".json")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		d.config.Logger.Printf("Record deleted: %s/%s", collection, id)
		return d.svc.DeleteRecord(d.ctx, collection, id)
	}

	c := store.OpenCollection(d.dataDir, collection)
	rec, ok, err := c.Get(id)
	if err != nil {
		return fmt.Errorf("failed to read record %s/%s: %w", collection, id, err)
	}
	if !ok {
		return d.svc.DeleteRecord(d.ctx, collection, id)
	}

	d.config.Logger.Printf("Record changed: %s/%s", collection, id)
	return d.svc.UpsertRecord(d.ctx, collection, rec)
}
