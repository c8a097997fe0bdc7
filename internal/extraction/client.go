package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"freightdesk/internal"
	"freightdesk/internal/config"
)

var ErrMissingAPIKey = errors.New("missing EXTRACT_API_KEY")

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg        config.Config
	api        *openai.Client
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type requestIDKey struct{}

// requestIDDoer stamps every outgoing attempt with the request id carried
// by its context.
type requestIDDoer struct{ c *Client }

func (d requestIDDoer) Do(req *http.Request) (*http.Response, error) {
	if id, ok := req.Context().Value(requestIDKey{}).(string); ok {
		req.Header.Set("X-Request-Id", id)
	}
	return d.c.httpClient.Do(req)
}

func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.ExtractRateLimitRPS > 0 {
		limit = rate.Limit(cfg.ExtractRateLimitRPS)
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.ExtractTimeoutMs) * time.Millisecond},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}

	apiCfg := openai.DefaultConfig(cfg.ExtractAPIKey)
	if base := strings.TrimSpace(cfg.ExtractAPIBaseURL); base != "" {
		apiCfg.BaseURL = strings.TrimRight(base, "/")
	}
	apiCfg.HTTPClient = requestIDDoer{c}
	c.api = openai.NewClientWithConfig(apiCfg)
	return c
}

// ExtractInvoice sends the invoice text to the model and returns one
// InvoiceFields per charge line. An empty text yields no lines.
func (c *Client) ExtractInvoice(ctx context.Context, text string) ([]internal.InvoiceFields, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if limit := c.cfg.ExtractMaxInputChars; limit > 0 {
		if runes := []rune(text); len(runes) > limit {
			text = string(runes[:limit])
		}
	}

	content, err := c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(text)},
	})
	if err != nil {
		return nil, err
	}
	return ParseLines(content)
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	if strings.TrimSpace(c.cfg.ExtractAPIKey) == "" {
		return "", ErrMissingAPIKey
	}

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.ExtractModel,
		Messages:    messages,
		Temperature: float32(c.cfg.ExtractTemperature),
	}
	maxAttempts := c.cfg.ExtractMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	requestID := uuid.NewString()
	ctx = context.WithValue(ctx, requestIDKey{}, requestID)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		started := time.Now()
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("extraction api returned no choices")
			}
			c.logger.Debug("extraction.request.ok",
				"request_id", requestID, "attempt", attempt, "elapsed_ms", time.Since(started).Milliseconds())
			return resp.Choices[0].Message.Content, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		// Status 0 means the request never got an HTTP answer.
		status := statusOf(err)
		if status != 0 && !isRetryableStatus(status) {
			return "", fmt.Errorf("extraction api error: %w", err)
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
		c.logger.Warn("extraction.request.retry",
			"request_id", requestID, "attempt", attempt, "status", status, "backoff", backoff, "err", err)
		if err := sleepCtx(ctx, backoff); err != nil {
			return "", err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("extraction request failed")
	}
	return "", fmt.Errorf("extraction failed after %d attempts: %w", maxAttempts, lastErr)
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
