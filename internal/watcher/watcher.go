// Package watcher reports changes to schema files on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType classifies a file change
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a single change to a watched path
type Event struct {
	Type EventType
	Path string
	Time time.Time
}

// ChangeHandler receives each debounced batch of events.
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	// DebounceMs is the quiet period before a batch is emitted
	DebounceMs int
	// Patterns are filename globs a path must match to be reported
	Patterns []string
	// IgnorePatterns are filename globs that are never reported
	IgnorePatterns []string
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs:     500,
		Patterns:       []string{"*.json", "*.yaml", "*.yml"},
		IgnorePatterns: []string{".*", "*~", "*.swp", "*.tmp"},
	}
}

// Watcher watches schema files and directories through fsnotify.
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler ChangeHandler

	fsw      *fsnotify.Watcher
	debounce *Debouncer

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
}

// New creates a watcher. The handler is called from the debounce timer.
func New(cfg Config, logger *slog.Logger, handler ChangeHandler) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		config:  cfg,
		logger:  logger,
		handler: handler,
		fsw:     fsw,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
	}
	w.debounce = NewDebouncer(time.Duration(cfg.DebounceMs)*time.Millisecond, w.emit)
	return w, nil
}

// AddFile watches a single file. fsnotify loses the watch on a file that
// editors replace by rename, so the parent directory is watched and events
// are filtered to the registered files.
func (w *Watcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.files[abs] = true
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		delete(w.files, abs)
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.dirs[dir] = true
	w.logger.Debug("Watching file", "path", abs)
	return nil
}

// AddDir watches every matching file directly inside path.
func (w *Watcher) AddDir(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", abs)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.fsw.Add(abs); err != nil {
		return fmt.Errorf("failed to watch %s: %w", abs, err)
	}
	w.dirs[abs] = true
	// a directory watch reports every matching file, not just registered ones
	w.files[abs+string(filepath.Separator)] = true
	w.logger.Debug("Watching directory", "path", abs)
	return nil
}

// Start runs the event loop until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.running = true
	dirs := len(w.dirs)
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()

	w.logger.Info("File watcher started",
		"dirs", dirs,
		"debounceMs", w.config.DebounceMs,
	)
	return nil
}

// Stop ends the event loop, drops pending events and releases the fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	w.wg.Wait()
	w.debounce.Cancel()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("File watcher stopped")
	return w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}
	if !w.tracked(abs) || !w.Matches(abs) || w.IsIgnored(abs) {
		return
	}

	e := Event{Type: eventType(ev.Op), Path: abs, Time: time.Now()}
	w.logger.Debug("Schema file changed", "path", abs, "type", e.Type.String())
	w.debounce.Add(e)
}

func (w *Watcher) tracked(abs string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[abs] {
		return true
	}
	return w.files[filepath.Dir(abs)+string(filepath.Separator)]
}

func (w *Watcher) emit(events []Event) {
	w.logger.Info("Schema files changed", "count", len(events))
	if w.handler != nil {
		w.handler(events)
	}
}

// Matches reports whether the base name of path matches a configured
// pattern. No patterns means every path matches.
func (w *Watcher) Matches(path string) bool {
	if len(w.config.Patterns) == 0 {
		return true
	}
	return matchAny(w.config.Patterns, filepath.Base(path))
}

// IsIgnored reports whether the base name of path matches an ignore pattern.
func (w *Watcher) IsIgnored(path string) bool {
	return matchAny(w.config.IgnorePatterns, filepath.Base(path))
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate
	case op.Has(fsnotify.Remove):
		return EventDelete
	case op.Has(fsnotify.Rename):
		return EventRename
	default:
		return EventModify
	}
}

// Paths returns the distinct paths of events, sorted.
func Paths(events []Event) []string {
	seen := make(map[string]bool, len(events))
	var out []string
	for _, e := range events {
		if !seen[e.Path] {
			seen[e.Path] = true
			out = append(out, e.Path)
		}
	}
	sort.Strings(out)
	return out
}
