// Package transcribe turns uploaded meeting audio into transcript text.
// Providers are tried in priority order, first available wins, and the
// chain never fails: when no backend is configured or every attempt
// errors, it returns an explanatory placeholder string instead.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Provider is one transcription backend.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// IsAvailable reports whether the provider is configured to run
	// (credentials present, endpoint set).
	IsAvailable() bool

	// Transcribe converts audio bytes into text.
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Chain tries providers in order and always produces a printable string.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithChainLogger sets the logger.
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) {
		c.logger = logger
	}
}

// NewChain creates a transcription chain over the given providers.
func NewChain(providers []Provider, opts ...ChainOption) *Chain {
	c := &Chain{
		providers: providers,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe runs the first available provider. It never returns an error:
// empty audio yields "", provider failures fall through to the next
// provider, and total unavailability yields a placeholder.
func (c *Chain) Transcribe(ctx context.Context, audio []byte, filename string) string {
	if len(audio) == 0 {
		return ""
	}

	attempted := false
	for _, p := range c.providers {
		if !p.IsAvailable() {
			continue
		}
		attempted = true

		text, err := p.Transcribe(ctx, audio, filename)
		if err != nil {
			c.logger.Warn("Transcription provider failed, trying next",
				"provider", p.Name(),
				"filename", filename,
				"error", err)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			return "No speech detected in audio"
		}
		return text
	}

	if attempted {
		return fmt.Sprintf("Transcription failed: all configured backends errored. Received %d bytes.", len(audio))
	}
	return fmt.Sprintf("Transcription unavailable: no transcription backend configured. Received %d bytes.", len(audio))
}
