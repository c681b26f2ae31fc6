package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/damacus/iron-shelf/internal/services"
)

// UsageReader reports bucket usage; *services.UsageService implements it
type UsageReader interface {
	BucketUsage(ctx context.Context) (services.BucketUsage, error)
}

type UsageHandler struct {
	usage UsageReader
	log   zerolog.Logger
}

func NewUsageHandler(usage UsageReader, log zerolog.Logger) *UsageHandler {
	return &UsageHandler{usage: usage, log: log}
}

// GetUsageWidget returns size and object count of the bucket for the header
func (h *UsageHandler) GetUsageWidget(c echo.Context) error {
	usage, err := h.usage.BucketUsage(c.Request().Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("bucket usage unavailable")
		return c.Render(http.StatusOK, "usage_widget", map[string]interface{}{
			"Error": true,
		})
	}

	return c.Render(http.StatusOK, "usage_widget", map[string]interface{}{
		"Usage": usage,
	})
}
