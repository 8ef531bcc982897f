package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"audio-stream-proxy/internal/service"
)

// LibraryHandler serves the static catalog listings.
type LibraryHandler struct {
	library *service.Library
}

// NewLibraryHandler creates a LibraryHandler.
func NewLibraryHandler(l *service.Library) *LibraryHandler {
	return &LibraryHandler{library: l}
}

func (h *LibraryHandler) Genres(c echo.Context) error  { return rawJSON(c, h.library.Genres()) }
func (h *LibraryHandler) Artists(c echo.Context) error { return rawJSON(c, h.library.Artists()) }
func (h *LibraryHandler) Songs(c echo.Context) error   { return rawJSON(c, h.library.Songs()) }

func rawJSON(c echo.Context, doc json.RawMessage) error {
	return c.JSONBlob(http.StatusOK, doc)
}
