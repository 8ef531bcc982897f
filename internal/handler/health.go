package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"audio-stream-proxy/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health, status and keep-alive endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, now: time.Now}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":            "ok",
		"version":           string(h.version),
		"extractor_backend": h.cfg.Extractor.Backend,
		"mirror_endpoints":  len(h.cfg.Mirrors.Endpoints),
	})
}

// Root describes the service and its main endpoints.
func (h *HealthHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "online",
		"message": "audio stream proxy is running",
		"endpoints": map[string]string{
			"search":        "/api/search?q=query",
			"stream":        "/stream/<id>",
			"mirror_stream": "/mirror-stream/<id>",
			"ping":          "/api/ping",
		},
	})
}

// Ping is the keep-alive endpoint polled by the web player.
func (h *HealthHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": float64(h.now().UnixMilli()) / 1000,
	})
}

// Favicon answers with no content so browsers stop asking.
func (h *HealthHandler) Favicon(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
