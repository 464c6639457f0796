package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dagaz/internal/storage"
)

// Watch starts an fsnotify watcher over the note area of the data directory
// and keeps metadata records in step with externally edited files until ctx
// is cancelled. Only files under a user's blocks directory carry metadata;
// resource files are ignored.
//
// New directories created at runtime are added to the watch list. Renames
// and new directories trigger a debounced reconciliation pass that catches
// anything the event stream missed.
func Watch(ctx context.Context, db *DB, store storage.Provider, dataRoot string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	notesRoot := filepath.Join(dataRoot, storage.NotesRoot())
	if err := os.MkdirAll(notesRoot, 0o755); err != nil {
		return err
	}
	if err := addDirsRecursive(w, notesRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", notesRoot))

	// Debounce reconciliation after renames and new directories.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
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
			if err := Reconcile(db, store, logger); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					// Pick up any files that arrived with the directory.
					scheduleReconcile()
					continue
				}
			}

			username, name, ok := splitBlockPath(dataRoot, absPath)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				rel, relErr := storage.RelPath(storage.KindNoteBlock, username, name)
				if relErr != nil {
					continue
				}
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				if err := refreshRecord(db, username, name, data, Fingerprint(data)); err != nil {
					logger.Warn("watcher: refresh failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: refreshed", slog.String("path", rel))

			case ev.Op&fsnotify.Remove != 0:
				if err := db.DeleteNote(username, name); err != nil {
					logger.Warn("watcher: delete failed",
						slog.String("username", username), slog.String("file", name),
						slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: removed record",
					slog.String("username", username), slog.String("file", name))

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path arrives as
				// a separate Create. Drop the old record now and reconcile
				// shortly to catch stragglers.
				if err := db.DeleteNote(username, name); err == nil {
					logger.Debug("watcher: rename old removed",
						slog.String("username", username), slog.String("file", name))
				}
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

// splitBlockPath reports whether abs is a note block file under dataRoot,
// returning the owning username and file name.
func splitBlockPath(dataRoot, abs string) (username, name string, ok bool) {
	rel, err := filepath.Rel(dataRoot, abs)
	if err != nil {
		return "", "", false
	}
	return storage.SplitNoteBlockPath(filepath.ToSlash(rel))
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
