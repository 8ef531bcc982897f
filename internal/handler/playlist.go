package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"audio-stream-proxy/internal/service"
)

// PlaylistHandler serves playlist CRUD.
type PlaylistHandler struct {
	store  *service.PlaylistStore
	logger *slog.Logger
}

// NewPlaylistHandler creates a PlaylistHandler.
func NewPlaylistHandler(store *service.PlaylistStore, logger *slog.Logger) *PlaylistHandler {
	return &PlaylistHandler{
		store:  store,
		logger: logger.With("component", "playlist_handler"),
	}
}

type playlistRequest struct {
	Name   string `json:"name"`
	SongID string `json:"songId"`
}

// List answers GET /api/playlists.
func (h *PlaylistHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.List())
}

// Create answers POST /api/playlists.
func (h *PlaylistHandler) Create(c echo.Context) error {
	var body playlistRequest
	if err := c.Bind(&body); err != nil {
		return h.mapError(c, service.ErrMalformedRequest, "invalid JSON body")
	}
	p, err := h.store.Create(body.Name)
	if err != nil {
		return h.mapError(c, err, "Name required")
	}
	return c.JSON(http.StatusOK, p)
}

// AddSong answers POST /api/playlists/:id/add.
func (h *PlaylistHandler) AddSong(c echo.Context) error {
	var body playlistRequest
	if err := c.Bind(&body); err != nil {
		return h.mapError(c, service.ErrMalformedRequest, "invalid JSON body")
	}
	p, err := h.store.AddSong(c.Param("id"), body.SongID)
	if err != nil {
		return h.mapError(c, err, "songId required")
	}
	return c.JSON(http.StatusOK, p)
}

// Rename answers PUT /api/playlists/:id.
func (h *PlaylistHandler) Rename(c echo.Context) error {
	var body playlistRequest
	if err := c.Bind(&body); err != nil {
		return h.mapError(c, service.ErrMalformedRequest, "invalid JSON body")
	}
	p, err := h.store.Rename(c.Param("id"), body.Name)
	if err != nil {
		return h.mapError(c, err, "Name required")
	}
	return c.JSON(http.StatusOK, p)
}

// Delete answers DELETE /api/playlists/:id.
func (h *PlaylistHandler) Delete(c echo.Context) error {
	if err := h.store.Delete(c.Param("id")); err != nil {
		return h.mapError(c, err, "")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// mapError answers with badRequestMsg for malformed input.
func (h *PlaylistHandler) mapError(c echo.Context, err error, badRequestMsg string) error {
	switch {
	case errors.Is(err, service.ErrMalformedRequest):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": badRequestMsg})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Playlist not found"})
	}
	h.logger.Error("playlist store failed", "path", c.Request().URL.Path, "err", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
