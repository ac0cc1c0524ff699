// Package bootstrap wires configuration into the concrete dependency graph.
package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/acharya-09/cameleon-tryon/internal/config"
	"github.com/acharya-09/cameleon-tryon/internal/generation"
	"github.com/acharya-09/cameleon-tryon/internal/ratelimit"
	"github.com/acharya-09/cameleon-tryon/internal/tryon"
	"github.com/acharya-09/cameleon-tryon/internal/upload"
)

// Dependencies contains the initialized application dependencies.
type Dependencies struct {
	Service *generation.Service
	Limiter ratelimit.Limiter
}

// NewDependencies creates all application dependencies from configuration.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	uploadHTTP := &http.Client{Timeout: cfg.UploadTimeout}

	providers := []upload.Provider{
		upload.NewHostClient("image-host", cfg.ImageHostEndpoint,
			upload.WithHostAPIKey(cfg.ImageHostAPIKey),
			upload.WithHostKeyRequired(),
			upload.WithHostHTTPClient(uploadHTTP),
		),
		upload.NewHostClient("fallback-host", cfg.FallbackHostEndpoint,
			upload.WithHostAPIKey(cfg.FallbackHostAPIKey),
			upload.WithHostHTTPClient(uploadHTTP),
		),
	}

	if cfg.S3Enabled() {
		s3p, err := upload.NewS3Provider(upload.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: s3 provider: %w", err)
		}
		providers = append(providers, s3p)
	}

	chain := upload.NewChain(logger, providers...)

	client, err := tryon.NewClient(cfg.TryonEndpointID,
		tryon.WithAPIKey(cfg.TryonAPIKey),
		tryon.WithBaseURL(cfg.TryonBaseURL),
		tryon.WithSubmitTimeout(cfg.SubmitTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: tryon client: %w", err)
	}

	poller := tryon.NewPoller(client, logger,
		tryon.WithBudget(cfg.PollBudget),
		tryon.WithIntervals(cfg.PollInitialInterval, cfg.PollMaxInterval),
	)

	records := generation.NewRecordStore(0)

	service := generation.NewService(chain, client, poller, records, logger,
		generation.WithPremium(cfg.Premium),
	)

	return &Dependencies{
		Service: service,
		Limiter: ratelimit.NewFixedWindow(cfg.RateLimit, cfg.RateLimitWindow),
	}, nil
}
