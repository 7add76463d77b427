package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/docintel/docintel/internal/common"
	"github.com/docintel/docintel/internal/core"
	"github.com/docintel/docintel/internal/document"
	"github.com/docintel/docintel/internal/llm/openrouter"
	"github.com/docintel/docintel/internal/repository"
)

// analyze runs one file through the full flow and prints the result JSON.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: analyze <file>")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

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
		TextModel:   cfg.LLM.TextModel,
		VisionModel: cfg.LLM.VisionModel,
		Timeout:     cfg.Analysis.Timeout,
		StaleAfter:  cfg.Analysis.StaleAfter,
	})

	doc, err := document.FromFile(os.Args[1])
	if err != nil {
		logger.Error("load file", "path", os.Args[1], "error", err)
		os.Exit(1)
	}

	result, err := proc.Process(ctx, doc)
	if err != nil {
		logger.Error("process", "path", os.Args[1], "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
