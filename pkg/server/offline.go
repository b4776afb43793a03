package server

import (
	"net/http"

	"veilo/pkg/log"

	"github.com/labstack/echo/v4"
)

// listOffline handles the GET /offline endpoint.
func (s *StatusServer) listOffline(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.deps.Store.ListOffline(ctx.Request().Context()))
}

// clearOffline handles the DELETE /offline endpoint.
func (s *StatusServer) clearOffline(ctx echo.Context) error {
	if err := s.deps.Store.ClearOffline(ctx.Request().Context()); err != nil {
		log.Error().Err(err).Msg("Failed to clear offline posts")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to clear offline posts",
		})
	}

	return ctx.NoContent(http.StatusNoContent)
}
