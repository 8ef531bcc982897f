package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raitonoberu/ytmusic"

	"audio-stream-proxy/internal/config"
	"audio-stream-proxy/internal/model"
)

// maxPendingSearches caps library calls in flight, including ones already
// abandoned by a timed-out caller.
const maxPendingSearches = 4

// CatalogClient searches the YouTube Music catalog for songs.
type CatalogClient struct {
	timeout time.Duration
	logger  *slog.Logger
	slots   chan struct{}

	// search is swapped in tests.
	search func(query string) ([]*ytmusic.TrackItem, error)
}

// NewCatalogClient creates a CatalogClient bounded by catalog.timeout_seconds.
func NewCatalogClient(cfg *config.Config, logger *slog.Logger) *CatalogClient {
	return &CatalogClient{
		timeout: time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second,
		logger:  logger.With("component", "catalog_client"),
		slots:   make(chan struct{}, maxPendingSearches),
		search:  trackSearch,
	}
}

func trackSearch(query string) ([]*ytmusic.TrackItem, error) {
	res, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil, err
	}
	return res.Tracks, nil
}

type searchOutcome struct {
	tracks []*ytmusic.TrackItem
	err    error
}

// SearchSongs returns up to limit song hits for query. The underlying library
// takes no context, so the call runs in its own goroutine and is abandoned on
// timeout. An abandoned call keeps its slot until the library returns, so at
// most maxPendingSearches goroutines exist at once.
func (c *CatalogClient) SearchSongs(ctx context.Context, query string, limit int) ([]model.TrackSummary, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.slots != nil {
		select {
		case c.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("catalog search: waiting for slot: %w", ctx.Err())
		}
	}

	done := make(chan searchOutcome, 1)
	go func() {
		if c.slots != nil {
			defer func() { <-c.slots }()
		}
		tracks, err := c.search(query)
		done <- searchOutcome{tracks: tracks, err: err}
	}()

	var out searchOutcome
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("catalog search: %w", ctx.Err())
	case out = <-done:
	}
	if out.err != nil {
		return nil, fmt.Errorf("catalog search: %w", out.err)
	}

	songs := make([]model.TrackSummary, 0, min(limit, len(out.tracks)))
	for _, t := range out.tracks {
		if len(songs) >= limit {
			break
		}
		if t == nil || t.VideoID == "" {
			continue
		}
		songs = append(songs, toSummary(t))
	}

	c.logger.Debug("catalog search", "query", query, "hits", len(songs))
	return songs, nil
}

func toSummary(t *ytmusic.TrackItem) model.TrackSummary {
	s := model.TrackSummary{
		VideoID:  t.VideoID,
		Title:    t.Title,
		Artist:   "Unknown",
		Duration: t.Duration,
	}
	if len(t.Artists) > 0 && t.Artists[0].Name != "" {
		s.Artist = t.Artists[0].Name
	}
	if n := len(t.Thumbnails); n > 0 {
		s.ThumbnailURL = t.Thumbnails[n-1].URL
		s.ThumbnailURLBackup = t.Thumbnails[0].URL
	}
	return s
}
