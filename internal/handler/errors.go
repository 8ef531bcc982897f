package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// NewHTTPErrorHandler replaces echo's default so framework errors (unknown
// routes, wrong methods, rate limiting, recovered panics) answer with the same
// {"error": ...} body as the handlers.
func NewHTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		}

		body := map[string]string{"error": msg}
		if code == http.StatusNotFound {
			body["error"] = "Not Found"
			body["path"] = strings.TrimPrefix(c.Request().URL.Path, "/")
		}
		if code >= http.StatusInternalServerError {
			logger.Error("unhandled error", "path", c.Request().URL.Path, "err", err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, body)
		}
		if werr != nil {
			logger.Debug("write error response", "err", werr)
		}
	}
}
