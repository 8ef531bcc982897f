package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"audio-stream-proxy/internal/client"
	"audio-stream-proxy/internal/config"
	"audio-stream-proxy/internal/metrics"
	"audio-stream-proxy/internal/model"
)

// idPattern bounds identifiers to plain video ids so the extractor never sees
// a playlist or arbitrary URL.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether id is an acceptable media identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ExtractorGate owns the extraction session and admits one call at a time.
type ExtractorGate struct {
	slot      chan struct{}
	extractor client.Extractor
	watchBase string
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewExtractorGate wraps ex. The metrics parameter is optional.
func NewExtractorGate(ex client.Extractor, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *ExtractorGate {
	return &ExtractorGate{
		slot:      make(chan struct{}, 1),
		extractor: ex,
		watchBase: cfg.Extractor.WatchURLBase,
		timeout:   cfg.ExtractorTimeout(),
		logger:    logger.With("component", "extractor_gate"),
		metrics:   m,
	}
}

// ResolveDirect extracts a playable candidate for id under exclusive access.
// Waiting for the gate ends only if ctx does; the extraction itself is bounded
// by the extractor timeout. The gate is released before returning on every path.
func (g *ExtractorGate) ResolveDirect(ctx context.Context, id string) (model.StreamCandidate, error) {
	if !ValidID(id) {
		return model.StreamCandidate{}, fmt.Errorf("%w: invalid id %q", ErrMalformedRequest, id)
	}
	watchURL := g.watchBase + url.QueryEscape(id)

	if err := g.acquire(ctx); err != nil {
		return model.StreamCandidate{}, fmt.Errorf("%w: waiting for gate: %w", ErrExtractionFailed, err)
	}
	defer g.release()

	extractCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	candidate, err := g.extractor.ExtractPlayableURL(extractCtx, watchURL)
	if err == nil && candidate.SourceURL == "" {
		err = client.ErrNoPlayableURL
	}
	g.observe(start, err)

	if err != nil {
		g.logger.Info("direct extraction failed", "id", id, "err", err)
		return model.StreamCandidate{}, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	candidate.Origin = model.OriginDirect
	return candidate, nil
}

func (g *ExtractorGate) acquire(ctx context.Context) error {
	if g.metrics != nil {
		g.metrics.GateWaiting.Inc()
		defer g.metrics.GateWaiting.Dec()
	}
	select {
	case g.slot <- struct{}{}:
		if g.metrics != nil {
			g.metrics.GateHeld.Set(1)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *ExtractorGate) release() {
	if g.metrics != nil {
		g.metrics.GateHeld.Set(0)
	}
	<-g.slot
}

func (g *ExtractorGate) observe(start time.Time, err error) {
	if g.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	g.metrics.ExtractionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
