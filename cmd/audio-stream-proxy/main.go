package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"audio-stream-proxy/internal/client"
	"audio-stream-proxy/internal/config"
	"audio-stream-proxy/internal/handler"
	"audio-stream-proxy/internal/metrics"
	"audio-stream-proxy/internal/middleware"
	"audio-stream-proxy/internal/service"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("audio-stream-proxy"),
		kong.Description("Resilient audio stream proxy with direct extraction and mirror fallback."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			metrics.New,
			newEcho,

			client.NewUpstreamClient,
			client.NewExtractor,
			fx.Annotate(client.NewMirrorClient, fx.As(new(service.MirrorFetcher))),
			fx.Annotate(client.NewCatalogClient, fx.As(new(service.Catalog))),

			fx.Annotate(service.NewExtractorGate, fx.As(new(service.DirectSource))),
			fx.Annotate(service.NewSourceRotation, fx.As(new(service.MirrorSource))),
			fx.Annotate(service.NewByteProxy, fx.As(new(service.Fetcher))),
			fx.Annotate(service.NewResolver, fx.As(new(handler.StreamResolver))),
			service.NewSearchService,
			service.NewPlaylistStore,
			service.NewLibrary,

			handler.NewStreamHandler,
			handler.NewSearchHandler,
			handler.NewPlaylistHandler,
			handler.NewLibraryHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(registerRoutes, registerMetrics, warnConfigPermissions, logStartup, startServer),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(logger)

	// Inbound timeouts to mitigate slow-client attacks.
	e.Server.ReadTimeout = 30 * time.Second
	// WriteTimeout stays 0: a track may stream for many minutes. Stalled
	// upstreams are bounded by the upstream client timeouts instead.
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m))
	}
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(echomw.CORS())
	e.Use(middleware.SecurityHeaders())

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimiter(cfg.Server.RateLimit))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

func registerRoutes(
	e *echo.Echo,
	stream *handler.StreamHandler,
	search *handler.SearchHandler,
	playlists *handler.PlaylistHandler,
	library *handler.LibraryHandler,
	health *handler.HealthHandler,
) {
	handler.RegisterRoutes(e, handler.Handlers{
		Stream:    stream,
		Search:    search,
		Playlists: playlists,
		Library:   library,
		Health:    health,
	})
}

func registerMetrics(e *echo.Echo, cfg *config.Config, m *metrics.Metrics) {
	if !cfg.Metrics.Enabled {
		return
	}
	e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func logStartup(cfg *config.Config, logger *slog.Logger) {
	logger.Info("stream sources configured",
		"extractor_backend", cfg.Extractor.Backend,
		"mirror_endpoints", len(cfg.Mirrors.Endpoints),
		"metrics_enabled", cfg.Metrics.Enabled,
	)
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server", "addr", addr, "version", version)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
