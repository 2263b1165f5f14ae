// Package ai talks to hosted language-model APIs to turn a user's
// financial summary into written advice. Providers are tried in order
// and the first usable answer wins.
package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNoProviders is returned by Chain.Complete when every configured
// provider failed or none were configured at all.
var ErrNoProviders = errors.New("no ai provider produced a response")

// Provider produces a completion for a system/user prompt pair.
type Provider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Chain tries each provider in order and returns the first non-empty
// answer, tagged with the provider that produced it.
type Chain struct {
	providers []Provider
	timeout   time.Duration
	logger    *slog.Logger
}

func NewChain(logger *slog.Logger, timeout time.Duration, providers ...Provider) *Chain {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Chain{providers: providers, timeout: timeout, logger: logger}
}

// Complete runs the provider chain. Each provider gets its own timeout
// so one slow upstream cannot starve the ones behind it.
func (c *Chain) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, string, error) {
	for _, p := range c.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		answer, err := p.Complete(attemptCtx, systemPrompt, userPrompt)
		cancel()
		if err != nil {
			c.logger.WarnContext(ctx, "ai provider failed, trying next",
				"provider", p.Name(),
				"error", err,
			)
			continue
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			c.logger.WarnContext(ctx, "ai provider returned empty answer, trying next",
				"provider", p.Name(),
			)
			continue
		}
		return answer, p.Name(), nil
	}
	return "", "", ErrNoProviders
}

func newHTTPClient() *http.Client {
	return &http.Client{}
}
