package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"audio-stream-proxy/internal/client"
	"audio-stream-proxy/internal/config"
	"audio-stream-proxy/internal/metrics"
	"audio-stream-proxy/internal/model"
)

// Catalog searches the song catalog.
type Catalog interface {
	SearchSongs(ctx context.Context, query string, limit int) ([]model.TrackSummary, error)
}

var _ Catalog = (*client.CatalogClient)(nil)

// SearchService answers catalog searches from a cache keyed by the exact query string.
type SearchService struct {
	catalog    Catalog
	cache      *gocache.Cache
	group      singleflight.Group
	limit      int
	maxResults int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewSearchService creates a SearchService. The metrics parameter is optional.
func NewSearchService(c Catalog, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *SearchService {
	ttl := time.Duration(cfg.Catalog.CacheTTLSeconds) * time.Second
	return &SearchService{
		catalog:    c,
		cache:      gocache.New(ttl, 2*ttl),
		limit:      cfg.Catalog.SearchLimit,
		maxResults: cfg.Catalog.MaxResults,
		logger:     logger.With("component", "search_service"),
		metrics:    m,
	}
}

// Search returns song hits for q. A blank query returns no results without
// touching the catalog. Concurrent identical queries share one catalog call.
func (s *SearchService) Search(ctx context.Context, q string) ([]model.TrackSummary, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []model.TrackSummary{}, nil
	}

	if v, ok := s.cache.Get(q); ok {
		s.count("hit")
		return v.([]model.TrackSummary), nil
	}
	s.count("miss")

	v, err, _ := s.group.Do(q, func() (any, error) {
		songs, err := s.catalog.SearchSongs(ctx, q, s.limit)
		if err != nil {
			return nil, err
		}
		if len(songs) > s.maxResults {
			songs = songs[:s.maxResults]
		}
		s.cache.SetDefault(q, songs)
		return songs, nil
	})
	if err != nil {
		s.logger.Error("search failed", "query", q, "err", err)
		return nil, err
	}
	return v.([]model.TrackSummary), nil
}

func (s *SearchService) count(result string) {
	if s.metrics != nil {
		s.metrics.SearchCache.WithLabelValues(result).Inc()
	}
}
