package refdata

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the reference data snapshot when any dataset file in the
// data directory changes. A reload that fails leaves the previous snapshot
// in place; decisions keep flowing on the last good tables.
type Watcher struct {
	dir      string
	store    *Store
	logger   *slog.Logger
	onReload func(*Tables, error)
}

// NewWatcher builds a watcher over dir feeding store. onReload, if non-nil,
// is invoked after every reload attempt with the new snapshot or the error.
func NewWatcher(dir string, store *Store, logger *slog.Logger, onReload func(*Tables, error)) *Watcher {
	return &Watcher{dir: dir, store: store, logger: logger, onReload: onReload}
}

// Start begins watching until ctx is cancelled. The watch loop runs in its
// own goroutine; Start returns once the directory is registered.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-fsw.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if !isDatasetFile(evt.Name) {
					continue
				}
				w.reload(evt.Name)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("reference data watcher error", "error", err)
			}
		}
	}()

	return fsw.Add(w.dir)
}

func (w *Watcher) reload(changed string) {
	tables, err := Load(w.dir)
	if err != nil {
		w.logger.Warn("reference data reload failed, keeping previous snapshot",
			"changed", filepath.Base(changed), "error", err)
		if w.onReload != nil {
			w.onReload(nil, err)
		}
		return
	}

	w.store.Replace(tables)
	w.logger.Info("reference data reloaded",
		"changed", filepath.Base(changed),
		"cases", tables.Cases.Len(),
		"zones", len(tables.Zones))
	if w.onReload != nil {
		w.onReload(tables, nil)
	}
}

func isDatasetFile(path string) bool {
	switch filepath.Base(path) {
	case CasesFile, ZonesFile, TargetFile, MedicsFile:
		return true
	default:
		return false
	}
}
