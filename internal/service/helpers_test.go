package service

import (
	"io"
	"log/slog"

	"audio-stream-proxy/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Extractor: config.ExtractorConfig{
			Backend:      config.BackendNative,
			WatchURLBase: "https://www.youtube.com/watch?v=",
		},
		Upstream: config.UpstreamConfig{
			TimeoutSeconds:  5,
			IdleConnections: 4,
			ChunkBytes:      4,
			UserAgent:       "test-agent",
			Referer:         "https://www.youtube.com/",
		},
		Mirrors: config.MirrorsConfig{TimeoutSeconds: 1},
		Catalog: config.CatalogConfig{
			SearchLimit:     15,
			MaxResults:      10,
			CacheTTLSeconds: 60,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
