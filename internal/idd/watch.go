package idd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadCallback is called after a watcher-driven catalog swap.
type ReloadCallback func(tags []string)

// Watch starts an fsnotify watcher on the schema directory and reloads the
// catalog when .idd files change, until ctx is cancelled. Reloads are
// debounced so a burst of file events produces a single swap. The catalog
// is replaced wholesale; a reload that yields zero usable sources keeps the
// previous map.
func Watch(ctx context.Context, c *Catalog, dir string, logger *slog.Logger, cb ReloadCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("schema watcher: started", slog.String("dir", dir))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("schema watcher: stopped")
			return nil

		case <-reloadCh:
			reload(c, dir, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(ev.Name), ".idd") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("schema watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("schema watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reload(c *Catalog, dir string, logger *slog.Logger, cb ReloadCallback) {
	sources, err := ReadDir(dir)
	if err != nil {
		logger.Warn("schema reload: read dir failed", slog.String("error", err.Error()))
		return
	}
	versions, bad, err := Load(sources)
	for _, se := range bad {
		logger.Warn("schema reload: bad source skipped", slog.String("error", se.Error()))
	}
	if err != nil {
		logger.Warn("schema reload: keeping previous catalog", slog.String("error", err.Error()))
		return
	}
	c.Replace(versions)
	tags := c.Tags()
	logger.Info("schema catalog reloaded", slog.Int("versions", len(tags)))
	if cb != nil {
		cb(tags)
	}
}
