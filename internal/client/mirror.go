package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"audio-stream-proxy/internal/config"
	"audio-stream-proxy/internal/model"
)

// ErrMirrorStatus is returned when a mirror answers with a non-200 status.
var ErrMirrorStatus = errors.New("mirror returned non-200 status")

// maxMirrorBody caps how much of a metadata response is decoded.
const maxMirrorBody = 4 << 20

type mirrorStreamsResponse struct {
	AudioStreams []mirrorAudioStream `json:"audioStreams"`
}

type mirrorAudioStream struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Bitrate  int    `json:"bitrate"`
	Quality  string `json:"quality"`
	Codec    string `json:"codec"`
}

// MirrorClient queries Piped-compatible mirror APIs for audio stream metadata.
type MirrorClient struct {
	httpClient *http.Client
	cfg        *config.Config
	logger     *slog.Logger
}

// NewMirrorClient creates a MirrorClient whose requests are bounded by mirrors.timeout_seconds.
func NewMirrorClient(cfg *config.Config, logger *slog.Logger) *MirrorClient {
	return &MirrorClient{
		httpClient: &http.Client{Timeout: cfg.MirrorTimeout()},
		cfg:        cfg,
		logger:     logger.With("component", "mirror_client"),
	}
}

// FetchStreams returns the audio candidates an endpoint lists for id, in the
// order the endpoint returned them. Entries without a URL are dropped.
func (c *MirrorClient) FetchStreams(ctx context.Context, ep model.MirrorEndpoint, id string) ([]model.StreamCandidate, error) {
	apiURL := ep.BaseURL + "/streams/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build mirror request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.Upstream.UserAgent)
	req.Header.Set("Referer", c.cfg.Upstream.Referer)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mirror request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrMirrorStatus, resp.StatusCode)
	}

	var body mirrorStreamsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMirrorBody)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode mirror response: %w", err)
	}

	candidates := make([]model.StreamCandidate, 0, len(body.AudioStreams))
	for _, s := range body.AudioStreams {
		if s.URL == "" {
			continue
		}
		candidates = append(candidates, model.StreamCandidate{
			SourceURL: s.URL,
			MimeHint:  s.MimeType,
			Origin:    model.OriginMirror,
		})
	}

	c.logger.Debug("mirror streams",
		"endpoint", ep.BaseURL,
		"id", id,
		"candidates", len(candidates),
	)
	return candidates, nil
}
