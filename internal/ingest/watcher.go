package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the order-statuses and order-diffs directories for new
// per-block files, pairs files that share a block-number filename stem,
// and hands decoded block pairs to Handler.
type Watcher struct {
	root    string
	decoder BatchDecoder
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{ statuses, diffs bool }
}

// Handler is called once per matched (statuses, diffs) file pair, in the
// order the pairing completes. It is the caller's responsibility to feed
// the result to engine.Engine.ApplyUpdates.
type Handler func(BlockPair) error

// NewWatcher returns a Watcher rooted at root (the directory containing
// the hl/data/... tree from spec §6).
func NewWatcher(root string, decoder BatchDecoder, logger *slog.Logger) *Watcher {
	return &Watcher{
		root:    root,
		decoder: decoder,
		logger:  logger,
		pending: make(map[string]struct{ statuses, diffs bool }),
	}
}

// Run watches both directories until ctx is cancelled, invoking handle
// for every matched block pair. It also performs an initial directory
// scan so files already present before Run is called are not missed.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	statusDir := OrderStatuses.Dir(w.root)
	diffDir := OrderDiffs.Dir(w.root)
	for _, dir := range []string{statusDir, diffDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}

	w.scanExisting(statusDir, diffDir, handle)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.onFile(ev.Name, statusDir, diffDir, handle)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("ingest watcher error", "error", err)
		}
	}
}

func (w *Watcher) scanExisting(statusDir, diffDir string, handle Handler) {
	names := map[string]bool{}
	for _, dir := range []string{statusDir, diffDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				names[e.Name()] = true
			}
		}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)
	for _, n := range sorted {
		w.onFile(filepath.Join(statusDir, n), statusDir, diffDir, handle)
		w.onFile(filepath.Join(diffDir, n), statusDir, diffDir, handle)
	}
}

// onFile records that path has appeared in one of the watched
// directories and, once both the status and diff file for its block
// number have been seen, reads, decodes, and dispatches the pair.
func (w *Watcher) onFile(path, statusDir, diffDir string, handle Handler) {
	dir := filepath.Dir(path)
	name := filepath.Base(path)

	w.mu.Lock()
	state := w.pending[name]
	switch dir {
	case statusDir:
		state.statuses = true
	case diffDir:
		state.diffs = true
	default:
		w.mu.Unlock()
		return
	}
	w.pending[name] = state
	ready := state.statuses && state.diffs
	if ready {
		delete(w.pending, name)
	}
	w.mu.Unlock()

	if !ready {
		return
	}

	statusBytes, err := os.ReadFile(filepath.Join(statusDir, name))
	if err != nil {
		w.logger.Error("failed to read status batch file", "file", name, "error", err)
		return
	}
	diffBytes, err := os.ReadFile(filepath.Join(diffDir, name))
	if err != nil {
		w.logger.Error("failed to read diff batch file", "file", name, "error", err)
		return
	}

	statuses, err := w.decoder.DecodeStatuses(statusBytes)
	if err != nil {
		w.logger.Error("failed to decode status batch", "file", name, "error", err)
		return
	}
	diffs, err := w.decoder.DecodeDiffs(diffBytes)
	if err != nil {
		w.logger.Error("failed to decode diff batch", "file", name, "error", err)
		return
	}

	if err := handle(BlockPair{Statuses: statuses, Diffs: diffs}); err != nil {
		w.logger.Error("failed to apply block pair", "file", name, "error", err)
	}
}
