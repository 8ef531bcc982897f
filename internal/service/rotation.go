package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"audio-stream-proxy/internal/client"
	"audio-stream-proxy/internal/config"
	"audio-stream-proxy/internal/metrics"
	"audio-stream-proxy/internal/model"
)

// MirrorFetcher lists the audio candidates one mirror endpoint offers for an id.
type MirrorFetcher interface {
	FetchStreams(ctx context.Context, ep model.MirrorEndpoint, id string) ([]model.StreamCandidate, error)
}

var _ MirrorFetcher = (*client.MirrorClient)(nil)

// SourceRotation walks the configured mirror endpoints in priority order.
type SourceRotation struct {
	fetcher   MirrorFetcher
	endpoints []model.MirrorEndpoint
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewSourceRotation creates a SourceRotation over cfg's mirror endpoints.
func NewSourceRotation(f MirrorFetcher, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *SourceRotation {
	return &SourceRotation{
		fetcher:   f,
		endpoints: cfg.MirrorEndpoints(),
		timeout:   cfg.MirrorTimeout(),
		logger:    logger.With("component", "source_rotation"),
		metrics:   m,
	}
}

// Endpoints returns a copy of the rotation order.
func (r *SourceRotation) Endpoints() []model.MirrorEndpoint {
	return append([]model.MirrorEndpoint(nil), r.endpoints...)
}

// FetchMirrorCandidates returns the ranked candidates of the first endpoint
// that lists any. Endpoint failures are logged and skipped; an empty result
// means every endpoint was exhausted. Each endpoint is tried at most once.
func (r *SourceRotation) FetchMirrorCandidates(ctx context.Context, id string) []model.StreamCandidate {
	for _, ep := range r.endpoints {
		if ctx.Err() != nil {
			return nil
		}

		candidates, err := r.fetchOne(ctx, ep, id)
		if err != nil {
			r.logger.Info("mirror skipped", "endpoint", ep.BaseURL, "id", id, "err", err)
			continue
		}

		r.logger.Info("mirror selected", "endpoint", ep.BaseURL, "id", id, "candidates", len(candidates))
		return Rank(candidates)
	}
	return nil
}

func (r *SourceRotation) fetchOne(ctx context.Context, ep model.MirrorEndpoint, id string) ([]model.StreamCandidate, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	candidates, err := r.fetcher.FetchStreams(ctx, ep, id)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		r.count(ep, "timeout")
	case errors.Is(err, client.ErrMirrorStatus):
		r.count(ep, "status")
	case err != nil:
		r.count(ep, "error")
	case len(candidates) == 0:
		r.count(ep, "empty")
		return nil, fmt.Errorf("%w: no audio streams", ErrMirrorUnavailable)
	default:
		r.count(ep, "ok")
		return candidates, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrMirrorUnavailable, err)
}

func (r *SourceRotation) count(ep model.MirrorEndpoint, outcome string) {
	if r.metrics == nil {
		return
	}
	host := ep.BaseURL
	if u, err := url.Parse(ep.BaseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	r.metrics.MirrorAttempts.WithLabelValues(host, outcome).Inc()
}
