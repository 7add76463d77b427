package async

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/docintel/docintel/constants"
)

// WatchConfig drives directory watching for continuous ingestion.
type WatchConfig struct {
	Roots       []string      // directories to watch, recursive
	SkipHidden  bool          // ignore dotfiles and dot-directories
	InitialScan bool          // emit files already present under the roots
	Debounce    time.Duration // coalesce rapid write and rename bursts
}

// Watch emits paths of supported documents appearing under the roots until
// ctx is canceled. Newly created subdirectories are picked up on the fly.
// The error channel carries watcher-level problems; both channels close on
// shutdown.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots to watch")
	}
	if logger == nil {
		logger = slog.Default()
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	addRoot := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if cfg.SkipHidden && path != root && strings.HasPrefix(filepath.Base(path), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && watchable(path, cfg.SkipHidden) {
				select {
				case evCh <- path:
				default:
					logger.Warn("watch.initial_scan_overflow", "path", path)
				}
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addRoot(r); err != nil {
			w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer w.Close()

		// pending and the debounce timer are owned by this goroutine
		// only; the timer just signals through its channel and the flush
		// happens here.
		pending := map[string]struct{}{}
		var timer *time.Timer
		var timerC <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		flush := func() {
			for p := range pending {
				select {
				case evCh <- p:
				default:
					logger.Warn("watch.event_overflow", "path", p)
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-timerC:
				flush()
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op.Has(fsnotify.Create) {
					// New directories must be watched too. Adding a plain
					// file fails harmlessly.
					if err := w.Add(e.Name); err == nil {
						logger.Debug("watch.dir_added", "path", e.Name)
					}
				}
				if watchable(e.Name, cfg.SkipHidden) && e.Op.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
					pending[e.Name] = struct{}{}
					if cfg.Debounce <= 0 {
						flush()
						continue
					}
					if timer == nil {
						timer = time.NewTimer(cfg.Debounce)
						timerC = timer.C
						continue
					}
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(cfg.Debounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func watchable(path string, skipHidden bool) bool {
	if skipHidden && strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return constants.IsAllowedExt(filepath.Ext(path))
}
