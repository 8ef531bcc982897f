package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"audio-stream-proxy/internal/model"
	"audio-stream-proxy/internal/service"
)

// StreamResolver resolves an id to a streaming upstream response.
type StreamResolver interface {
	Resolve(ctx context.Context, id, rangeHeader string) (*model.ProxyResult, error)
	ResolveMirrors(ctx context.Context, id, rangeHeader string) (*model.ProxyResult, error)
}

var _ StreamResolver = (*service.Resolver)(nil)

type resolveFunc func(ctx context.Context, id, rangeHeader string) (*model.ProxyResult, error)

// StreamHandler serves audio bytes for a media id.
type StreamHandler struct {
	resolver StreamResolver
	logger   *slog.Logger
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(r StreamResolver, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		resolver: r,
		logger:   logger.With("component", "stream_handler"),
	}
}

// Stream resolves through the direct source first, then the mirrors.
func (h *StreamHandler) Stream(c echo.Context) error {
	return h.serve(c, h.resolver.Resolve)
}

// MirrorStream resolves through the mirrors only.
func (h *StreamHandler) MirrorStream(c echo.Context) error {
	return h.serve(c, h.resolver.ResolveMirrors)
}

func (h *StreamHandler) serve(c echo.Context, resolve resolveFunc) error {
	req := c.Request()
	id := c.Param("id")

	res, err := resolve(req.Context(), id, req.Header.Get("Range"))
	if err != nil {
		return h.mapError(c, id, err)
	}
	defer func() { _ = res.Close() }()

	resp := c.Response()
	for key, vals := range res.Header {
		for _, v := range vals {
			resp.Header().Add(key, v)
		}
	}
	resp.WriteHeader(res.StatusCode)

	// Once the status is sent a failure can only end the connection early.
	for chunk, err := range res.Chunks() {
		if err != nil {
			h.logger.Warn("upstream read failed mid-stream", "id", id, "err", err, "bytes_out", resp.Size)
			return nil
		}
		if _, err := resp.Write(chunk); err != nil {
			h.logger.Debug("client went away", "id", id, "err", err, "bytes_out", resp.Size)
			return nil
		}
		resp.Flush()
	}
	return nil
}

func (h *StreamHandler) mapError(c echo.Context, id string, err error) error {
	switch {
	case errors.Is(err, service.ErrMalformedRequest):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid media id",
		})
	case errors.Is(err, service.ErrNoSourceAvailable):
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "No working source found",
		})
	case errors.Is(err, context.Canceled):
		h.logger.Debug("client disconnected before streaming", "id", id)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	h.logger.Error("stream failed", "id", id, "path", c.Request().URL.Path, "err", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "internal error",
	})
}
