// Package watcher reports changes to pot files in the ledger directory
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/moneypot/moneypot/internal/store"
	"github.com/moneypot/moneypot/pkg/logger"
)

// DefaultDebounce is used when no debounce period is configured
const DefaultDebounce = 500 * time.Millisecond

// EventType represents what happened to a pot file
type EventType string

const (
	EventTypeChanged EventType = "changed"
	EventTypeRemoved EventType = "removed"
)

// Event is one debounced change to a pot
type Event struct {
	PotID string
	Type  EventType
}

// Callback handles a debounced pot event. Callbacks run one at a time on
// the watcher's goroutine.
type Callback func(ctx context.Context, event Event)

// LedgerWatcher watches a ledger directory and coalesces bursts of file
// events into one callback per pot
type LedgerWatcher struct {
	dir      string
	debounce time.Duration
	logger   logger.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timers  map[string]*time.Timer
	pending map[string]EventType
	fire    chan string
	done    chan struct{}
}

// New creates a watcher for dir. A non-positive debounce means DefaultDebounce.
func New(dir string, debounce time.Duration, log logger.Logger) *LedgerWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.Discard()
	}
	return &LedgerWatcher{
		dir:      dir,
		debounce: debounce,
		logger:   log,
		timers:   make(map[string]*time.Timer),
		pending:  make(map[string]EventType),
		fire:     make(chan string),
	}
}

// Start begins watching and returns once the directory is registered.
// Watching stops when ctx is cancelled.
func (w *LedgerWatcher) Start(ctx context.Context, callback Callback) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return errors.New("watcher already started")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch ledger directory: %w", err)
	}

	w.watcher = fw
	w.done = make(chan struct{})
	go w.watchLoop(ctx, callback)

	w.logger.Debug("Started watching ledger", logger.WithField("dir", w.dir))
	return nil
}

// Wait blocks until the watch loop has exited
func (w *LedgerWatcher) Wait() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (w *LedgerWatcher) watchLoop(ctx context.Context, callback Callback) {
	defer close(w.done)
	defer w.stop()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Ledger watcher panic recovered", logger.WithField("panic", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			potID, ok := store.PotIDFromPath(event.Name)
			if !ok {
				continue
			}
			w.logger.Debug("Ledger file event", logger.WithField("event", event.String()))
			w.schedule(ctx, potID, eventType(event.Op))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Ledger watcher error", logger.WithError(err))

		case potID := <-w.fire:
			w.mu.Lock()
			typ, ok := w.pending[potID]
			delete(w.pending, potID)
			delete(w.timers, potID)
			w.mu.Unlock()

			// A timer stopped after it fired has nothing left to report.
			if !ok {
				continue
			}
			callback(ctx, Event{PotID: potID, Type: typ})
		}
	}
}

func (w *LedgerWatcher) schedule(ctx context.Context, potID string, typ EventType) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[potID] = typ
	if timer, ok := w.timers[potID]; ok {
		timer.Stop()
	}
	w.timers[potID] = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- potID:
		case <-ctx.Done():
		}
	})
}

func (w *LedgerWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, timer := range w.timers {
		timer.Stop()
		delete(w.timers, id)
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("Error closing ledger watcher", logger.WithError(err))
	}
	w.logger.Debug("Stopped watching ledger")
}

func eventType(op fsnotify.Op) EventType {
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		return EventTypeRemoved
	}
	return EventTypeChanged
}
