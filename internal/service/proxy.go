// Package service implements stream resolution: the extractor gate, mirror
// rotation, candidate ranking, the byte proxy and the resolver that ties them
// together, plus the catalog search, playlist and library services.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"audio-stream-proxy/internal/client"
	"audio-stream-proxy/internal/config"
	"audio-stream-proxy/internal/model"
)

// forwardableResponseHeaders are the only upstream headers passed to the caller.
var forwardableResponseHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
}

// ByteProxy fetches a candidate URL and exposes its body for streaming.
type ByteProxy struct {
	client    *client.UpstreamClient
	cfg       *config.Config
	logger    *slog.Logger
	chunkSize int
}

// NewByteProxy creates a ByteProxy.
func NewByteProxy(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) *ByteProxy {
	return &ByteProxy{
		client:    c,
		cfg:       cfg,
		logger:    logger.With("component", "byte_proxy"),
		chunkSize: cfg.Upstream.ChunkBytes,
	}
}

// Proxy requests candidateURL, forwarding rangeHeader when non-empty. Any
// non-2xx status is an *UpstreamError. On success the caller owns the result
// and must Close it; the fetch is bound to ctx. A body read that waits longer
// than the upstream timeout aborts the fetch with ErrUpstreamStalled.
func (p *ByteProxy) Proxy(ctx context.Context, candidateURL, rangeHeader string) (*model.ProxyResult, error) {
	header := p.requestHeaders(rangeHeader)

	p.logger.Debug("fetching candidate", "url", truncateURL(candidateURL), "range", rangeHeader)

	fetchCtx, cancel := context.WithCancelCause(ctx)

	resp, err := p.client.DoStream(fetchCtx, http.MethodGet, candidateURL, header)
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel(nil)
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	return &model.ProxyResult{
		StatusCode: resp.StatusCode,
		Header:     filterResponseHeaders(resp.Header),
		Body:       newIdleTimeoutBody(fetchCtx, cancel, resp.Body, p.cfg.UpstreamTimeout()),
		ChunkSize:  p.chunkSize,
	}, nil
}

// idleTimeoutBody cancels the fetch when a single Read blocks longer than
// timeout. The timer only runs while a Read is in flight, so a slow consumer
// does not count against the upstream.
type idleTimeoutBody struct {
	rc      io.ReadCloser
	ctx     context.Context
	cancel  context.CancelCauseFunc
	timeout time.Duration
	timer   *time.Timer
}

func newIdleTimeoutBody(ctx context.Context, cancel context.CancelCauseFunc, rc io.ReadCloser, timeout time.Duration) *idleTimeoutBody {
	b := &idleTimeoutBody{rc: rc, ctx: ctx, cancel: cancel, timeout: timeout}
	if timeout > 0 {
		b.timer = time.AfterFunc(timeout, func() { cancel(ErrUpstreamStalled) })
		b.timer.Stop()
	}
	return b
}

func (b *idleTimeoutBody) Read(buf []byte) (int, error) {
	if b.timer != nil {
		b.timer.Reset(b.timeout)
	}
	n, err := b.rc.Read(buf)
	if b.timer != nil {
		b.timer.Stop()
	}
	if err != nil && !errors.Is(err, io.EOF) && errors.Is(context.Cause(b.ctx), ErrUpstreamStalled) {
		return n, fmt.Errorf("%w: no data for %s: %w", ErrUpstreamStalled, b.timeout, err)
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.cancel(nil)
	return b.rc.Close()
}

func (p *ByteProxy) requestHeaders(rangeHeader string) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", p.cfg.Upstream.UserAgent)
	h.Set("Referer", p.cfg.Upstream.Referer)
	h.Set("Accept", "*/*")
	if rangeHeader != "" {
		h.Set("Range", rangeHeader)
	}
	return h
}

func filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header)
	for _, key := range forwardableResponseHeaders {
		if v := src.Get(key); v != "" {
			dst.Set(key, v)
		}
	}
	return dst
}

// truncateURL keeps signed stream URLs out of logs beyond their host and path prefix.
func truncateURL(u string) string {
	const limit = 60
	if len(u) <= limit {
		return u
	}
	return u[:limit] + "..."
}
