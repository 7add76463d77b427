package main

import (
	"context"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/docintel/docintel/constants"
	"github.com/docintel/docintel/internal/common"
	"github.com/docintel/docintel/internal/core"
	"github.com/docintel/docintel/internal/core/async"
	"github.com/docintel/docintel/internal/llm/openrouter"
	"github.com/docintel/docintel/internal/repository"
)

// docbatch analyzes every supported file under a directory through a
// bounded worker pool. With -watch it keeps running and picks up files as
// they appear.
func main() {
	root := flag.String("dir", ".", "directory to scan")
	workers := flag.Int("workers", 4, "concurrent analysis workers")
	skipHidden := flag.Bool("skip-hidden", true, "skip dotfiles and dot-directories")
	watch := flag.Bool("watch", false, "keep watching the directory after the initial scan")
	debounce := flag.Duration("debounce", 500*time.Millisecond, "coalesce bursts of file events (watch mode)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg.Database.DSN, logger)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	client := openrouter.NewClient(openrouter.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		ConnectTimeout: cfg.LLM.ConnectTimeout,
		ReadTimeout:    cfg.LLM.ReadTimeout,
	}, logger)

	proc := core.NewProcessor(logger, client, store, core.Options{
		TextModel:     cfg.LLM.TextModel,
		VisionModel:   cfg.LLM.VisionModel,
		Timeout:       cfg.Analysis.Timeout,
		StaleAfter:    cfg.Analysis.StaleAfter,
		MaxConcurrent: int64(*workers),
	})

	queue := async.NewQueue(proc, logger, async.WithWorkers(*workers))

	if *watch {
		runWatch(ctx, queue, logger, async.WatchConfig{
			Roots:       []string{*root},
			SkipHidden:  *skipHidden,
			InitialScan: true,
			Debounce:    *debounce,
		})
	} else {
		runScan(ctx, queue, logger, *root, *skipHidden)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	queue.Shutdown(drainCtx)
}

func runScan(ctx context.Context, queue *async.Queue, logger *slog.Logger, root string, skipHidden bool) {
	var scanned, matched int
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if skipHidden && path != root && strings.HasPrefix(filepath.Base(path), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		scanned++
		if !constants.IsAllowedExt(filepath.Ext(path)) {
			return nil
		}
		matched++
		return queue.Enqueue(ctx, async.Job{Path: path, SubmittedAt: time.Now()})
	})
	if err != nil {
		logger.Error("walk failed", "root", root, "error", err)
	}
	logger.Info("scan complete", "root", root, "scanned", scanned, "matched", matched)
}

func runWatch(ctx context.Context, queue *async.Queue, logger *slog.Logger, cfg async.WatchConfig) {
	events, errs, err := async.Watch(ctx, cfg, logger)
	if err != nil {
		logger.Error("start watcher", "roots", cfg.Roots, "error", err)
		os.Exit(1)
	}
	logger.Info("watching for documents", "roots", cfg.Roots)

	for events != nil || errs != nil {
		select {
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := queue.Enqueue(ctx, async.Job{Path: path, SubmittedAt: time.Now()}); err != nil {
				logger.Error("enqueue failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error("watch error", "error", err)
		}
	}
}
