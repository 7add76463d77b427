package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docintel/docintel/internal/common"
	"github.com/docintel/docintel/internal/llm"
)

// chat/completions wire types.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string, or []contentPart for image payloads
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}

// Invoke sends one chat/completions request and returns the model's
// textual answer. Transient failures (429, 408, 5xx, transport errors,
// and provider error envelopes inside a 200) are retried up to the
// attempt budget with a fixed delay; any other 4xx propagates
// immediately as a bad-request error.
func (c *Client) Invoke(ctx context.Context, model, systemPrompt string, payload llm.Payload) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent(payload)},
		},
	}

	c.logger.Info("llm.invoke.start",
		"req_id", rid,
		"model", model,
		"text_len", len(payload.Text),
		"has_image", payload.ImageDataURL != "",
	)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				// Caller-side cancellation, not a provider failure; keep
				// the context error reachable and the transient kind off.
				return "", fmt.Errorf("canceled while waiting to retry: %w", ctx.Err())
			case <-time.After(c.cfg.RetryDelay):
			}
		}

		text, err := c.send(ctx, rid, attempt, body)
		if err == nil {
			c.logger.Info("llm.invoke.ok",
				"req_id", rid,
				"attempt", attempt,
				"content_len", len(text),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return text, nil
		}
		if !common.IsTransient(err) {
			c.logger.Error("llm.invoke.fatal",
				"req_id", rid, "attempt", attempt, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return "", err
		}
		lastErr = err
		c.logger.Warn("llm.invoke.retryable",
			"req_id", rid, "attempt", attempt, "max_attempts", c.cfg.MaxAttempts, "error", err,
		)
	}

	c.logger.Error("llm.invoke.exhausted",
		"req_id", rid, "attempts", c.cfg.MaxAttempts, "error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return "", lastErr
}

// send performs a single attempt and classifies the outcome.
func (c *Client) send(ctx context.Context, rid string, attempt int, body chatRequest) (string, error) {
	bs, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", c.cfg.Referer)
	req.Header.Set("X-Title", c.cfg.Title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", common.NewTransientError(0, "request failed", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("llm.http.body_close_error", "req_id", rid, "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", common.NewTransientError(0, "read response", err)
	}

	c.logger.Debug("llm.http.response",
		"req_id", rid, "attempt", attempt, "status", resp.StatusCode, "bytes", len(raw),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := providerMessage(raw)
		if common.RetryableStatus(resp.StatusCode) {
			return "", common.NewTransientError(resp.StatusCode, msg, nil)
		}
		return "", common.NewBadRequestError(resp.StatusCode, msg)
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", common.NewTransientError(resp.StatusCode, "undecodable response envelope", err)
	}
	// Providers sometimes wrap transient errors in a 200-status envelope.
	if cc.Error != nil && cc.Error.Message != "" {
		return "", common.NewTransientError(resp.StatusCode, "provider error: "+cc.Error.Message, nil)
	}
	if len(cc.Choices) == 0 {
		return "", common.NewTransientError(resp.StatusCode, "empty choices in response", nil)
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

// CompleteJSON implements llm.Invoker: invoke, validate, and on a shape
// failure issue exactly one corrective re-prompt whose user content is
// the previous (invalid) response. A second failure surfaces the schema
// error; there is no further loop.
func (c *Client) CompleteJSON(ctx context.Context, model, systemPrompt string, payload llm.Payload, shape llm.Shape) ([]byte, error) {
	text, err := c.Invoke(ctx, model, systemPrompt, payload)
	if err != nil {
		return nil, err
	}

	cleaned, verr := llm.ValidateShape(text, shape)
	if verr == nil {
		return cleaned, nil
	}

	c.logger.Warn("llm.correct.reprompt", "model", model, "shape", shape.String(), "error", verr)
	corrected, err := c.Invoke(ctx, model, llm.BuildCorrectionPrompt(shape), llm.Payload{Text: text})
	if err != nil {
		return nil, err
	}
	cleaned, verr = llm.ValidateShape(corrected, shape)
	if verr != nil {
		c.logger.Error("llm.correct.failed", "model", model, "shape", shape.String(), "error", verr)
		return nil, verr
	}
	c.logger.Info("llm.correct.ok", "model", model, "shape", shape.String())
	return cleaned, nil
}

// userContent picks the wire form of the user message: plain string for
// text, parts with an inlined image reference otherwise.
func userContent(p llm.Payload) any {
	if p.ImageDataURL == "" {
		return p.Text
	}
	parts := []contentPart{
		{Type: "image_url", ImageURL: &imageURL{URL: p.ImageDataURL, Detail: "high"}},
	}
	if p.Text != "" {
		parts = append(parts, contentPart{Type: "text", Text: p.Text})
	}
	return parts
}

// providerMessage pulls a short human-readable message out of an error
// body, falling back to a truncated raw dump. Vendor strings never reach
// callers verbatim; this feeds logs and internal error values only.
func providerMessage(raw []byte) string {
	var env struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		s = "no response body"
	}
	return s
}
