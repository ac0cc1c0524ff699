// Package upload stages image payloads to publicly fetchable URLs through an
// ordered fallback chain of hosting providers.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Static errors for upload operations.
var (
	// ErrAllProvidersFailed is returned when every configured provider rejected the asset.
	ErrAllProvidersFailed = errors.New("upload: all providers failed")
	// ErrNoProviders is returned when the chain has no providers at all.
	ErrNoProviders = errors.New("upload: no providers configured")
	// ErrEmptyPayload is returned when the payload has no bytes.
	ErrEmptyPayload = errors.New("upload: empty payload")
)

// Provider stages a single image payload and returns its public URL.
type Provider interface {
	// Name identifies the provider in logs and Asset records.
	Name() string

	// Enabled reports whether the provider has the configuration it needs.
	// Disabled providers are skipped silently by the chain.
	Enabled() bool

	// Upload stages the payload and returns a publicly fetchable URL.
	Upload(ctx context.Context, data []byte, filename string) (string, error)
}

// Asset is the result of staging one image.
type Asset struct {
	// URL is the publicly fetchable location of the image.
	URL string
	// Provider is the name of the provider that accepted the upload.
	Provider string
}

// Chain tries providers in order until one accepts the upload.
// Each provider gets exactly one attempt per call; any error falls through to
// the next provider. This is an ordered fallback chain, not a retry policy.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates an upload chain over the given providers.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		providers: providers,
		logger:    logger,
	}
}

// Upload stages data through the first provider that accepts it.
// Returns ErrAllProvidersFailed only if every enabled provider rejected the
// asset (or none is enabled).
func (c *Chain) Upload(ctx context.Context, data []byte, filename string) (Asset, error) {
	if len(data) == 0 {
		return Asset{}, ErrEmptyPayload
	}
	if len(c.providers) == 0 {
		return Asset{}, ErrNoProviders
	}

	var lastErr error
	for _, p := range c.providers {
		if !p.Enabled() {
			c.logger.Debug("upload provider not configured, skipping",
				slog.String("provider", p.Name()),
			)
			continue
		}

		url, err := p.Upload(ctx, data, filename)
		if err != nil {
			c.logger.Warn("upload provider failed, falling through",
				slog.String("provider", p.Name()),
				slog.String("error", err.Error()),
			)
			lastErr = err
			continue
		}

		return Asset{URL: url, Provider: p.Name()}, nil
	}

	if lastErr != nil {
		return Asset{}, fmt.Errorf("%w: %w", ErrAllProvidersFailed, lastErr)
	}
	return Asset{}, ErrAllProvidersFailed
}
