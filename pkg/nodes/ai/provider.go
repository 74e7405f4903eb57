// Package ai provides the ai-* nodes and the language model clients behind them.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

const DefaultTimeout = 60 * time.Second

// ErrNotConfigured is returned by providers that have no API key.
var ErrNotConfigured = errors.New("API Key not configured")

// GenerateRequest is a single-prompt completion request.
type GenerateRequest struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completion is the text a provider produced.
type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

// Provider generates text from a prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*Completion, error)
}

// APIError is a non-2xx answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API Error: %s", e.Provider, e.Body)
}

// Breaker guards a provider with a circuit breaker so a failing upstream is
// not hammered by every run.
type Breaker struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker[*Completion]
}

// NewBreaker opens after five consecutive upstream failures and probes again
// after thirty seconds. Missing credentials do not count as failures.
func NewBreaker(provider Provider, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        provider.Name(),
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotConfigured)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("AI provider circuit changed state",
				"provider", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Breaker{
		provider: provider,
		cb:       gobreaker.NewCircuitBreaker[*Completion](settings),
	}
}

func (b *Breaker) Name() string {
	return b.provider.Name()
}

func (b *Breaker) Generate(ctx context.Context, req GenerateRequest) (*Completion, error) {
	return b.cb.Execute(func() (*Completion, error) {
		return b.provider.Generate(ctx, req)
	})
}
