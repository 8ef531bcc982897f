package handler

import (
	"github.com/labstack/echo/v4"
)

// Handlers groups the route handlers for registration.
type Handlers struct {
	Stream    *StreamHandler
	Search    *SearchHandler
	Playlists *PlaylistHandler
	Library   *LibraryHandler
	Health    *HealthHandler
}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/", h.Health.Root)
	e.GET("/healthz", h.Health.Healthz)
	e.GET("/status", h.Health.Status)
	e.GET("/favicon.ico", h.Health.Favicon)
	e.GET("/api/ping", h.Health.Ping)

	e.GET("/stream/:id", h.Stream.Stream)
	e.GET("/mirror-stream/:id", h.Stream.MirrorStream)
	e.GET("/api/stream/:id", h.Stream.Stream)
	e.GET("/api/piped-stream/:id", h.Stream.MirrorStream)

	e.GET("/api/search", h.Search.Search)

	e.GET("/api/playlists", h.Playlists.List)
	e.POST("/api/playlists", h.Playlists.Create)
	e.POST("/api/playlists/:id/add", h.Playlists.AddSong)
	e.PUT("/api/playlists/:id", h.Playlists.Rename)
	e.DELETE("/api/playlists/:id", h.Playlists.Delete)

	e.GET("/api/genres", h.Library.Genres)
	e.GET("/api/library/artists", h.Library.Artists)
	e.GET("/api/library/songs", h.Library.Songs)
	e.GET("/top_songs.json", h.Library.Songs)
	e.GET("/top_artists.json", h.Library.Artists)
}
