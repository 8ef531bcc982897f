// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"audio-stream-proxy/internal/model"
)

// reservedRoutes are route prefixes the metrics endpoint must not shadow.
var reservedRoutes = []string{
	"/api", "/stream", "/mirror-stream", "/healthz", "/status",
	"/favicon.ico", "/top_songs.json", "/top_artists.json",
}

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/audio-stream-proxy/config.toml",
	"configs/config.toml",
}

// defaultMirrorEndpoints is the Piped API rotation used when none is configured.
var defaultMirrorEndpoints = []string{
	"https://pipedapi.lunar.icu",
	"https://api-piped.mha.fi",
	"https://pipedapi.adminforge.de",
	"https://pipedapi.kavin.rocks",
	"https://api.piped.projectsegfau.lt",
}

const (
	BackendNative = "native"
	BackendYtdlp  = "ytdlp"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultReferer = "https://www.youtube.com/"

	maxMirrorTimeoutSeconds   = 5
	maxUpstreamTimeoutSeconds = 10
)

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config    string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host      string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port      int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	LogLevel  string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
	Extractor string `kong:"help='Extractor backend: native|ytdlp (overrides config).',env='EXTRACTOR_BACKEND'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Extractor ExtractorConfig `toml:"extractor"`
	Mirrors   MirrorsConfig   `toml:"mirrors"`
	Upstream  UpstreamConfig  `toml:"upstream"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Library   LibraryConfig   `toml:"library"`
	Log       LogConfig       `toml:"log"`
	Metrics   MetricsConfig   `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (5001)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP inbound request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ExtractorConfig selects and tunes the direct extraction backend.
type ExtractorConfig struct {
	Backend        string `toml:"backend"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	WatchURLBase   string `toml:"watch_url_base"`
	YtdlpPath      string `toml:"ytdlp_path"`
	ForceIPv4      bool   `toml:"force_ipv4"`
}

// MirrorsConfig lists the mirror API endpoints in priority order.
type MirrorsConfig struct {
	Endpoints      []string `toml:"endpoints"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// UpstreamConfig holds settings for the audio byte fetch.
type UpstreamConfig struct {
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	IdleConnections int    `toml:"idle_connections"`
	ChunkBytes      int    `toml:"chunk_bytes"`
	UserAgent       string `toml:"user_agent"`
	Referer         string `toml:"referer"`
}

// CatalogConfig holds catalog search settings.
type CatalogConfig struct {
	SearchLimit     int `toml:"search_limit"`
	MaxResults      int `toml:"max_results"`
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
	TimeoutSeconds  int `toml:"timeout_seconds"`
}

// LibraryConfig locates the static catalog files and the playlists document.
type LibraryConfig struct {
	DataDir       string `toml:"data_dir"`
	PlaylistsFile string `toml:"playlists_file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/audio-stream-proxy/config.toml then configs/config.toml.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found (searched %v)", configSearchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.filePath = path
	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
	if cli.Extractor != "" {
		c.Extractor.Backend = cli.Extractor
	}
}

func (c *Config) validate() error {
	// Mirror endpoints: absolute HTTPS URLs.
	for i, ep := range c.Mirrors.Endpoints {
		u, err := url.Parse(ep)
		if err != nil {
			return fmt.Errorf("mirrors.endpoints[%d] is not a valid URL: %w", i, err)
		}
		if u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("mirrors.endpoints[%d] must be an absolute HTTPS URL; got %q", i, ep)
		}
	}

	switch strings.ToLower(c.Extractor.Backend) {
	case BackendNative, BackendYtdlp, "":
		// valid
	default:
		return fmt.Errorf("extractor.backend must be one of: native, ytdlp; got %q", c.Extractor.Backend)
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}
	if c.Extractor.TimeoutSeconds < 0 {
		return fmt.Errorf("extractor.timeout_seconds must be non-negative; got %d", c.Extractor.TimeoutSeconds)
	}
	if c.Mirrors.TimeoutSeconds < 0 || c.Mirrors.TimeoutSeconds > maxMirrorTimeoutSeconds {
		return fmt.Errorf("mirrors.timeout_seconds must be 0–%d; got %d", maxMirrorTimeoutSeconds, c.Mirrors.TimeoutSeconds)
	}
	if c.Upstream.TimeoutSeconds < 0 || c.Upstream.TimeoutSeconds > maxUpstreamTimeoutSeconds {
		return fmt.Errorf("upstream.timeout_seconds must be 0–%d; got %d", maxUpstreamTimeoutSeconds, c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Upstream.ChunkBytes < 0 {
		return fmt.Errorf("upstream.chunk_bytes must be non-negative; got %d", c.Upstream.ChunkBytes)
	}
	if c.Catalog.SearchLimit < 0 || c.Catalog.MaxResults < 0 || c.Catalog.CacheTTLSeconds < 0 || c.Catalog.TimeoutSeconds < 0 {
		return fmt.Errorf("catalog settings must be non-negative")
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' || p == "/" {
			return fmt.Errorf("metrics.path must start with '/' and name a route; got %q", p)
		}
		for _, reserved := range reservedRoutes {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// As with the port, an explicit 0 in the file is indistinguishable from an
// omitted key and therefore also selects the default.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5001
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 1 << 20
	}
	c.Extractor.Backend = strings.ToLower(c.Extractor.Backend)
	if c.Extractor.Backend == "" {
		c.Extractor.Backend = BackendNative
	}
	if c.Extractor.TimeoutSeconds == 0 {
		c.Extractor.TimeoutSeconds = 30
	}
	if c.Extractor.WatchURLBase == "" {
		c.Extractor.WatchURLBase = "https://www.youtube.com/watch?v="
	}
	if c.Extractor.YtdlpPath == "" {
		c.Extractor.YtdlpPath = "yt-dlp"
	}
	if len(c.Mirrors.Endpoints) == 0 {
		c.Mirrors.Endpoints = append([]string(nil), defaultMirrorEndpoints...)
	}
	if c.Mirrors.TimeoutSeconds == 0 {
		c.Mirrors.TimeoutSeconds = maxMirrorTimeoutSeconds
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = maxUpstreamTimeoutSeconds
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Upstream.ChunkBytes == 0 {
		c.Upstream.ChunkBytes = model.DefaultChunkSize
	}
	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = defaultUserAgent
	}
	if c.Upstream.Referer == "" {
		c.Upstream.Referer = defaultReferer
	}
	if c.Catalog.SearchLimit == 0 {
		c.Catalog.SearchLimit = 15
	}
	if c.Catalog.MaxResults == 0 {
		c.Catalog.MaxResults = 10
	}
	if c.Catalog.CacheTTLSeconds == 0 {
		c.Catalog.CacheTTLSeconds = 3600
	}
	if c.Catalog.TimeoutSeconds == 0 {
		c.Catalog.TimeoutSeconds = 10
	}
	if c.Library.DataDir == "" {
		c.Library.DataDir = "public"
	}
	if c.Library.PlaylistsFile == "" {
		c.Library.PlaylistsFile = filepath.Join(c.Library.DataDir, "playlists.json")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// MirrorEndpoints returns the configured mirror list in priority order.
func (c *Config) MirrorEndpoints() []model.MirrorEndpoint {
	eps := make([]model.MirrorEndpoint, 0, len(c.Mirrors.Endpoints))
	for _, ep := range c.Mirrors.Endpoints {
		eps = append(eps, model.MirrorEndpoint{BaseURL: strings.TrimRight(ep, "/")})
	}
	return eps
}

// MirrorTimeout returns the per-endpoint metadata request timeout.
func (c *Config) MirrorTimeout() time.Duration {
	return time.Duration(c.Mirrors.TimeoutSeconds) * time.Second
}

// UpstreamTimeout returns the connect/response-header timeout for byte fetches.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// ExtractorTimeout returns the bound on a single extraction call.
func (c *Config) ExtractorTimeout() time.Duration {
	return time.Duration(c.Extractor.TimeoutSeconds) * time.Second
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
