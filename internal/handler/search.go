package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"audio-stream-proxy/internal/model"
	"audio-stream-proxy/internal/service"
)

// SearchHandler serves catalog search.
type SearchHandler struct {
	service *service.SearchService
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(svc *service.SearchService) *SearchHandler {
	return &SearchHandler{service: svc}
}

type searchResponse struct {
	Results []model.TrackSummary `json:"results"`
	Error   string               `json:"error,omitempty"`
}

// Search answers GET /api/search?q=.
func (h *SearchHandler) Search(c echo.Context) error {
	results, err := h.service.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, searchResponse{
			Results: []model.TrackSummary{},
			Error:   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, searchResponse{Results: results})
}
