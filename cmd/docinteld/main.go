package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docintel/docintel/internal/common"
	"github.com/docintel/docintel/internal/core"
	"github.com/docintel/docintel/internal/export"
	"github.com/docintel/docintel/internal/llm/openrouter"
	"github.com/docintel/docintel/internal/repository"
	"github.com/docintel/docintel/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
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
		MaxConcurrent: cfg.Analysis.MaxConcurrent,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := server.NewHandler(proc, store, export.NewService(store, logger), cfg.Server.MaxUploadBytes, logger)
	server.SetupRoutes(router, handler, server.RateLimit{
		Every: cfg.Server.RateLimitEvery,
		Burst: cfg.Server.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	logger.Info("stopped")
}
