package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"audio-stream-proxy/internal/metrics"
	"audio-stream-proxy/internal/model"
)

// DirectSource yields the primary candidate for an id.
type DirectSource interface {
	ResolveDirect(ctx context.Context, id string) (model.StreamCandidate, error)
}

// MirrorSource yields ranked fallback candidates for an id; empty means exhausted.
type MirrorSource interface {
	FetchMirrorCandidates(ctx context.Context, id string) []model.StreamCandidate
}

// Fetcher opens a candidate URL for streaming.
type Fetcher interface {
	Proxy(ctx context.Context, candidateURL, rangeHeader string) (*model.ProxyResult, error)
}

var (
	_ DirectSource = (*ExtractorGate)(nil)
	_ MirrorSource = (*SourceRotation)(nil)
	_ Fetcher      = (*ByteProxy)(nil)
)

// attempt is the tagged outcome of one resolution step: either a result to
// serve or the reason the step was skipped.
type attempt struct {
	result *model.ProxyResult
	skip   error
}

type step struct {
	name string
	run  func(ctx context.Context, id, rangeHeader string) attempt
}

// Resolver runs the ordered fallback chain: direct extraction, then mirrors.
type Resolver struct {
	direct  DirectSource
	mirrors MirrorSource
	fetcher Fetcher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewResolver creates a Resolver. The metrics parameter is optional.
func NewResolver(direct DirectSource, mirrors MirrorSource, fetcher Fetcher, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		direct:  direct,
		mirrors: mirrors,
		fetcher: fetcher,
		logger:  logger.With("component", "resolver"),
		metrics: m,
	}
}

// Resolve tries the direct source, then the mirror rotation, and returns the
// first candidate that proxies successfully. The caller must Close the result.
func (r *Resolver) Resolve(ctx context.Context, id, rangeHeader string) (*model.ProxyResult, error) {
	return r.run(ctx, "stream", id, rangeHeader,
		step{name: "direct", run: r.tryDirect},
		step{name: "mirror", run: r.tryMirrors},
	)
}

// ResolveMirrors skips the direct source and runs only the mirror rotation.
func (r *Resolver) ResolveMirrors(ctx context.Context, id, rangeHeader string) (*model.ProxyResult, error) {
	return r.run(ctx, "mirror-stream", id, rangeHeader,
		step{name: "mirror", run: r.tryMirrors},
	)
}

func (r *Resolver) run(ctx context.Context, route, id, rangeHeader string, steps ...step) (*model.ProxyResult, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: invalid id %q", ErrMalformedRequest, id)
	}

	for _, s := range steps {
		a := s.run(ctx, id, rangeHeader)
		if a.result != nil {
			r.logger.Info("resolved", "route", route, "id", id, "source", s.name, "status", a.result.StatusCode)
			r.count(route, s.name)
			return a.result, nil
		}
		if err := ctx.Err(); err != nil {
			r.count(route, "canceled")
			return nil, err
		}
		r.logger.Info("source skipped", "route", route, "id", id, "source", s.name, "reason", a.skip)
	}

	r.logger.Warn("all sources exhausted", "route", route, "id", id)
	r.count(route, "exhausted")
	return nil, ErrNoSourceAvailable
}

func (r *Resolver) tryDirect(ctx context.Context, id, rangeHeader string) attempt {
	candidate, err := r.direct.ResolveDirect(ctx, id)
	if err != nil {
		return attempt{skip: err}
	}

	res, err := r.fetcher.Proxy(ctx, candidate.SourceURL, rangeHeader)
	if err != nil {
		return attempt{skip: err}
	}
	return attempt{result: res}
}

func (r *Resolver) tryMirrors(ctx context.Context, id, rangeHeader string) attempt {
	candidates := r.mirrors.FetchMirrorCandidates(ctx, id)
	if len(candidates) == 0 {
		return attempt{skip: fmt.Errorf("%w: rotation exhausted", ErrMirrorUnavailable)}
	}

	var errs []error
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return attempt{skip: err}
		}
		res, err := r.fetcher.Proxy(ctx, c.SourceURL, rangeHeader)
		if err == nil {
			return attempt{result: res}
		}
		r.logger.Info("candidate failed", "id", id, "index", i, "mime", c.MimeHint, "err", err)
		errs = append(errs, err)
	}
	return attempt{skip: errors.Join(errs...)}
}

func (r *Resolver) count(route, outcome string) {
	if r.metrics != nil {
		r.metrics.Resolutions.WithLabelValues(route, outcome).Inc()
	}
}
