package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/wikimeta/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// Watch keeps the index in step with the vault until ctx is cancelled,
// calling cb (if non-nil) after every successful index change.
//
// Directories created at runtime are added to the watch list. Remove and
// Rename events only mark a page as possibly gone: editors often save by
// moving the original aside and writing a new file. The debounced
// reconciliation drops the pages still missing and indexes new ones.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", vaultRoot))

	notify := func(kind, name string) {
		if cb != nil {
			cb(kind, name)
		}
	}

	gone := make(map[string]struct{})

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
			return
		}
		reconcileTimer.Reset(reconcileDelay)
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			dropMissing(db, store, logger, gone, notify)
			clear(gone)
			reconcile(db, store, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					// Files may land in the directory before it is watched.
					scheduleReconcile()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, storage.PageExt) {
				continue
			}
			rel, relErr := filepath.Rel(vaultRoot, ev.Name)
			if relErr != nil {
				continue
			}
			name := storage.PageName(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("page", name), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := IndexPage(db, name, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("page", name), slog.String("error", idxErr.Error()))
					continue
				}
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				logger.Debug("watcher: indexed", slog.String("page", name), slog.String("op", kind))
				notify(kind, name)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("watcher: page may be gone", slog.String("page", name))
				gone[name] = struct{}{}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// dropMissing removes the candidates that are still absent from the vault
// and reports them as deleted. Pages that came back are left to reconcile.
func dropMissing(db *DB, store storage.Provider, logger *slog.Logger, candidates map[string]struct{}, notify EventCallback) {
	for name := range candidates {
		_, err := store.ModTime(storage.PagePath(name))
		if err == nil {
			logger.Debug("watcher: page rewritten in place", slog.String("page", name))
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("watcher: stat failed", slog.String("page", name), slog.String("error", err.Error()))
			continue
		}
		if delErr := db.DeletePage(name); delErr != nil {
			logger.Warn("watcher: delete failed", slog.String("page", name), slog.String("error", delErr.Error()))
			continue
		}
		logger.Debug("watcher: deleted", slog.String("page", name))
		notify(EventDeleted, name)
	}
}

// reconcile indexes pages present on disk but missing or stale in the index.
// Stale index entries are removed by dropMissing, not here.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, notify EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	for _, m := range metas {
		prev, known := checksums[m.Name]
		if known && prev == m.Checksum {
			continue
		}
		data, readErr := store.Read(m.Path)
		if readErr != nil {
			continue
		}
		if idxErr := IndexPage(db, m.Name, data); idxErr != nil {
			continue
		}
		logger.Debug("reconcile: indexed", slog.String("page", m.Name))
		if known {
			notify(EventUpdated, m.Name)
		} else {
			notify(EventCreated, m.Name)
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
