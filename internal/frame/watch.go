package frame

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events an editor produces per save.
const reloadDelay = 200 * time.Millisecond

// ReloadFunc receives every newly validated frame set.
type ReloadFunc func(*Set)

// Watch reloads the frame document at path whenever it changes until ctx is
// cancelled. The containing directory is watched so that editors which save
// by renaming a temporary file are picked up.
//
// A document that fails validation is logged and ignored: the caller keeps
// using the last good set. Saves that leave the content unchanged are
// skipped by comparing checksums with current.
func Watch(ctx context.Context, path string, current *Set, logger *slog.Logger, onReload ReloadFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("frames watcher: started", slog.String("path", abs))

	var lastChecksum string
	if current != nil {
		lastChecksum = current.Checksum()
	}

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDelay)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("frames watcher: stopped")
			return nil

		case <-reloadCh:
			set, loadErr := Load(abs)
			if loadErr != nil {
				logger.Warn("frames watcher: reload rejected, keeping previous frames",
					slog.String("path", abs),
					slog.String("error", loadErr.Error()))
				continue
			}
			if set.Checksum() == lastChecksum {
				logger.Debug("frames watcher: unchanged", slog.String("checksum", lastChecksum))
				continue
			}
			lastChecksum = set.Checksum()
			logger.Info("frames watcher: reloaded",
				slog.Int("frames", set.Len()),
				slog.String("checksum", lastChecksum))
			if onReload != nil {
				onReload(set)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("frames watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
