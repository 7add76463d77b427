package openrouter

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"
)

// Config for the OpenRouter client.
type Config struct {
	APIKey         string        // if empty, falls back to env OPENROUTER_API_KEY
	BaseURL        string        // default https://openrouter.ai/api/v1
	Referer        string        // attribution header HTTP-Referer
	Title          string        // attribution header X-Title
	ConnectTimeout time.Duration // dial timeout
	ReadTimeout    time.Duration // overall request timeout; analysis calls are slow
	MaxAttempts    int           // total attempts per call, default 3
	RetryDelay     time.Duration // fixed delay between attempts, default 1s
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Referer == "" {
		cfg.Referer = "https://github.com/docintel/docintel"
	}
	if cfg.Title == "" {
		cfg.Title = "docintel"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 90 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
		logger: logger,
	}
}
