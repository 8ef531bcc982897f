package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/lrstanley/go-ytdlp"

	"audio-stream-proxy/internal/config"
	"audio-stream-proxy/internal/model"
)

// ErrNoPlayableURL is returned when extraction succeeds but yields no audio URL.
var ErrNoPlayableURL = errors.New("no playable audio url")

// Extractor resolves a canonical watch URL to a single playable audio candidate.
// Implementations are not assumed safe for concurrent use.
type Extractor interface {
	ExtractPlayableURL(ctx context.Context, watchURL string) (model.StreamCandidate, error)
}

// NewExtractor returns the backend selected by extractor.backend.
func NewExtractor(cfg *config.Config, logger *slog.Logger) (Extractor, error) {
	switch cfg.Extractor.Backend {
	case config.BackendNative:
		return NewNativeExtractor(cfg, logger), nil
	case config.BackendYtdlp:
		return NewYtdlpExtractor(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", cfg.Extractor.Backend)
	}
}

// NativeExtractor extracts stream URLs in-process. The underlying client caches
// player state between calls.
type NativeExtractor struct {
	yt     *youtube.Client
	logger *slog.Logger
}

// NewNativeExtractor creates a NativeExtractor whose HTTP calls carry the extractor timeout.
func NewNativeExtractor(cfg *config.Config, logger *slog.Logger) *NativeExtractor {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	dial := dialer.DialContext
	if cfg.Extractor.ForceIPv4 {
		dial = func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		}
	}

	return &NativeExtractor{
		yt: &youtube.Client{
			HTTPClient: &http.Client{
				Timeout: cfg.ExtractorTimeout(),
				Transport: &http.Transport{
					Proxy:                 http.ProxyFromEnvironment,
					DialContext:           dial,
					TLSHandshakeTimeout:   10 * time.Second,
					ResponseHeaderTimeout: cfg.ExtractorTimeout(),
				},
			},
		},
		logger: logger.With("component", "native_extractor"),
	}
}

// ExtractPlayableURL fetches video metadata and resolves the best audio format.
func (e *NativeExtractor) ExtractPlayableURL(ctx context.Context, watchURL string) (model.StreamCandidate, error) {
	video, err := e.yt.GetVideoContext(ctx, watchURL)
	if err != nil {
		return model.StreamCandidate{}, fmt.Errorf("get video: %w", err)
	}

	format := bestAudioFormat(video.Formats)
	if format == nil {
		return model.StreamCandidate{}, ErrNoPlayableURL
	}

	streamURL, err := e.yt.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return model.StreamCandidate{}, fmt.Errorf("get stream url: %w", err)
	}
	if streamURL == "" {
		return model.StreamCandidate{}, ErrNoPlayableURL
	}

	e.logger.Debug("extracted",
		"itag", format.ItagNo,
		"mime", format.MimeType,
		"bitrate", format.Bitrate,
	)

	return model.StreamCandidate{
		SourceURL: streamURL,
		MimeHint:  format.MimeType,
		Origin:    model.OriginDirect,
	}, nil
}

// bestAudioFormat mirrors "bestaudio/best": the highest-bitrate audio-only
// format, else the highest-bitrate format that carries audio at all.
func bestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var bestAudio, bestAny *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 && !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if strings.HasPrefix(f.MimeType, "audio/") {
			if bestAudio == nil || f.Bitrate > bestAudio.Bitrate {
				bestAudio = f
			}
			continue
		}
		if bestAny == nil || f.Bitrate > bestAny.Bitrate {
			bestAny = f
		}
	}
	if bestAudio != nil {
		return bestAudio
	}
	return bestAny
}

// YtdlpExtractor shells out to yt-dlp for each extraction.
type YtdlpExtractor struct {
	executable string
	timeout    time.Duration
	forceIPv4  bool
	logger     *slog.Logger
}

// NewYtdlpExtractor creates a YtdlpExtractor using extractor.ytdlp_path.
func NewYtdlpExtractor(cfg *config.Config, logger *slog.Logger) *YtdlpExtractor {
	return &YtdlpExtractor{
		executable: cfg.Extractor.YtdlpPath,
		timeout:    cfg.ExtractorTimeout(),
		forceIPv4:  cfg.Extractor.ForceIPv4,
		logger:     logger.With("component", "ytdlp_extractor"),
	}
}

// ExtractPlayableURL runs yt-dlp with bestaudio selection and returns the first printed URL.
func (e *YtdlpExtractor) ExtractPlayableURL(ctx context.Context, watchURL string) (model.StreamCandidate, error) {
	args := []string{"--socket-timeout", strconv.Itoa(int(e.timeout.Seconds()))}
	if e.forceIPv4 {
		args = append(args, "--force-ipv4")
	}
	args = append(args, watchURL)

	res, err := ytdlp.New().
		SetExecutable(e.executable).
		Quiet().
		NoWarnings().
		IgnoreConfig().
		NoPlaylist().
		Format("bestaudio/best").
		Print("urls").
		Run(ctx, args...)
	if err != nil {
		return model.StreamCandidate{}, fmt.Errorf("yt-dlp: %w", err)
	}

	for line := range strings.Lines(res.Stdout) {
		if u := strings.TrimSpace(line); strings.HasPrefix(u, "http") {
			return model.StreamCandidate{SourceURL: u, Origin: model.OriginDirect}, nil
		}
	}
	return model.StreamCandidate{}, ErrNoPlayableURL
}
