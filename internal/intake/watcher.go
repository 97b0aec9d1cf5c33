package intake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/logging"
)

// Subdirectories of the inbox that receive handled files.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// DefaultDebounce coalesces bursts of writes to one file.
const DefaultDebounce = 50 * time.Millisecond

// Handler receives the events parsed from one inbox file. Returning an
// error moves the file to failed/.
type Handler func(ctx context.Context, path string, events []conflict.ChangeEvent) error

// Watcher processes *.json files dropped into an inbox directory.
type Watcher struct {
	dir      string
	tenantID string
	handler  Handler
	debounce time.Duration
	logger   *logging.Logger

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *logging.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates the inbox and its processed/ and failed/
// subdirectories, and starts watching dir.
func NewWatcher(dir, tenantID string, handler Handler, opts ...WatcherOption) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("intake handler is required")
	}
	for _, sub := range []string{"", ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create inbox: %w", err)
		}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{
		dir:      dir,
		tenantID: tenantID,
		handler:  handler,
		debounce: DefaultDebounce,
		logger:   logging.NopLogger(),
		watcher:  fw,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithTenant(tenantID).WithComponent("intake")
	return w, nil
}

// Run drains files already in the inbox, then processes new ones until ctx
// is done or Stop is called.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started || w.closed {
		w.mu.Unlock()
		return fmt.Errorf("watcher already started or stopped")
	}
	w.started = true
	w.mu.Unlock()

	defer close(w.done)
	defer func() { _ = w.watcher.Close() }()

	if err := w.Drain(ctx); err != nil {
		return err
	}

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isRecordFile(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]struct{})
			sort.Strings(paths)
			for _, p := range paths {
				w.ProcessFile(ctx, p)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watcher error", "error", err.Error())
		}
	}
}

// Stop ends Run and waits for it to return. A watcher that never ran just
// releases its resources. Stop is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.mu.Lock()
	idle := !w.started && !w.closed
	w.closed = true
	w.mu.Unlock()
	if idle {
		_ = w.watcher.Close()
		close(w.done)
	}
	<-w.done
}

// Drain processes every record file currently in the inbox once.
func (w *Watcher) Drain(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isRecordFile(e.Name()) {
			continue
		}
		w.ProcessFile(ctx, filepath.Join(w.dir, e.Name()))
	}
	return nil
}

// ProcessFile parses one file, hands it to the handler and moves it aside.
// A file that vanished before processing is ignored.
func (w *Watcher) ProcessFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return
	}
	log := w.logger.With("file", filepath.Base(path))
	if err == nil {
		var events []conflict.ChangeEvent
		events, err = Parse(data, w.tenantID)
		if err == nil {
			err = w.handler(ctx, path, events)
		}
		if err == nil {
			log.Info("processed inbox file", "events", len(events))
		}
	}

	dest := ProcessedDir
	if err != nil {
		dest = FailedDir
		log.Warn("inbox file failed", "error", err.Error())
	}
	if mvErr := os.Rename(path, filepath.Join(w.dir, dest, filepath.Base(path))); mvErr != nil && !os.IsNotExist(mvErr) {
		log.Error("failed to move inbox file", "dest", dest, "error", mvErr.Error())
	}
}

func isRecordFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".json") && !strings.HasPrefix(base, ".")
}
