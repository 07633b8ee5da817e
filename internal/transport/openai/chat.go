package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/solace/internal/domain"
	"github.com/kailas-cloud/solace/internal/metrics"
)

// ChatConfig holds chat completion settings.
type ChatConfig struct {
	APIKey        string
	BaseURL       string // e.g. https://api.groq.com/openai/v1
	Model         string
	Temperature   float32
	MaxTokens     int
	Timeout       time.Duration // per attempt
	MaxAttempts   int
	MinBackoff    time.Duration
	MaxBackoff    time.Duration
	HistoryWindow int
	RatePerMinute int // 0 = unpaced
	Logger        *zap.Logger
}

// ChatClient generates grounded replies through an OpenAI-compatible chat API.
type ChatClient struct {
	client  *openai.Client
	cfg     ChatConfig
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *zap.Logger
}

// NewChatClient creates a chat client. Zero-valued settings fall back to
// 30s timeout, 3 attempts and 2s..10s exponential backoff.
func NewChatClient(cfg ChatConfig) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}

	return &ChatClient{
		client:  openai.NewClientWithConfig(clientCfg),
		cfg:     cfg,
		limiter: limiter,
		sleep:   sleepCtx,
		logger:  cfg.Logger,
	}
}

// Generate answers query grounded on contexts, continuing history.
// Errors wrap domain.ErrLLMFailed.
func (c *ChatClient) Generate(ctx context.Context, query string, contexts []string, history []domain.Turn) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    buildMessages(query, contexts, history, c.cfg.HistoryWindow),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	start := time.Now()
	defer func() {
		metrics.LLMRequestDuration.WithLabelValues(c.cfg.Model).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.backoff(attempt-1)); err != nil {
				return "", fmt.Errorf("%w: %w", domain.ErrLLMFailed, err)
			}
		}

		text, err := c.attempt(ctx, req)
		if err == nil {
			metrics.LLMRequestsTotal.WithLabelValues(c.cfg.Model, "success").Inc()
			return text, nil
		}

		metrics.LLMRequestsTotal.WithLabelValues(c.cfg.Model, "error").Inc()
		c.logger.Warn("llm attempt failed",
			zap.Int("attempt", attempt), zap.Int("max_attempts", c.cfg.MaxAttempts), zap.Error(err))
		lastErr = err

		if ctx.Err() != nil || !isRetryable(err) {
			break
		}
	}

	return "", fmt.Errorf("%w: %w", domain.ErrLLMFailed, lastErr)
}

func (c *ChatClient) attempt(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(attemptCtx, req)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("generation timed out after %s", c.cfg.Timeout)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// backoff returns the wait before retry n (1-based): 2^(n-1) seconds clamped to [MinBackoff, MaxBackoff].
func (c *ChatClient) backoff(n int) time.Duration {
	d := time.Second << (n - 1)
	if d < c.cfg.MinBackoff {
		d = c.cfg.MinBackoff
	}
	if d > c.cfg.MaxBackoff {
		d = c.cfg.MaxBackoff
	}
	return d
}

// HealthCheck verifies API availability via ListModels.
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// isRetryable reports false for client errors that will fail identically on retry.
func isRetryable(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status >= 400 && status < 500 {
		return status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
	}
	return true
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
