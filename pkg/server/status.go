package server

import (
	"errors"
	"net/http"

	"veilo/pkg/connection"
	"veilo/pkg/log"
	"veilo/pkg/mode"
	"veilo/pkg/models"
	"veilo/pkg/notify"

	"github.com/labstack/echo/v4"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Version      string                 `json:"version,omitempty"`
	Backend      string                 `json:"backend"`
	Health       models.HealthStatus    `json:"health"`
	Mode         mode.Snapshot          `json:"mode"`
	Connection   models.ConnectionStats `json:"connection"`
	OfflinePosts int                    `json:"offline_posts"`
}

// BackendsResponse is the body of GET /backends.
type BackendsResponse struct {
	Candidates []string                   `json:"candidates"`
	Attempts   []models.ConnectionAttempt `json:"attempts"`
	Stats      models.ConnectionStats     `json:"stats"`
}

// getStatus handles the GET /status endpoint.
func (s *StatusServer) getStatus(ctx echo.Context) error {
	stats := s.deps.Connection.Stats()
	return ctx.JSON(http.StatusOK, StatusResponse{
		Version:      s.deps.Version,
		Backend:      stats.Pinned,
		Health:       s.deps.Health.Status(),
		Mode:         s.deps.Mode.Snapshot(),
		Connection:   stats,
		OfflinePosts: s.deps.Store.Count(ctx.Request().Context()),
	})
}

// checkHealth handles the POST /health/check endpoint.
func (s *StatusServer) checkHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.deps.Health.Check(ctx.Request().Context()))
}

// getBackends handles the GET /backends endpoint.
func (s *StatusServer) getBackends(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, BackendsResponse{
		Candidates: s.deps.Connection.Candidates(),
		Attempts:   s.deps.Connection.Attempts(),
		Stats:      s.deps.Connection.Stats(),
	})
}

// probeBackends handles the POST /backends/probe endpoint.
func (s *StatusServer) probeBackends(ctx echo.Context) error {
	backend, err := s.deps.Connection.FindHealthyBackend(ctx.Request().Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, connection.ErrAllBackendsOffline) {
			status = http.StatusServiceUnavailable
		}
		log.Warn().Err(err).Str("backend", backend).Msg("Backend probe found no healthy backend")
		return ctx.JSON(status, map[string]string{
			"error":   err.Error(),
			"backend": backend,
		})
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"backend": backend,
	})
}

type modeRequest struct {
	Emergency *bool `json:"emergency"`
}

// setMode handles the PUT /mode endpoint.
func (s *StatusServer) setMode(ctx echo.Context) error {
	var req modeRequest
	if err := ctx.Bind(&req); err != nil || req.Emergency == nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Body must be {\"emergency\": true|false}",
		})
	}

	s.deps.Mode.SetEmergency(*req.Emergency)
	return ctx.JSON(http.StatusOK, s.deps.Mode.Snapshot())
}

// getNotifications handles the GET /notifications endpoint.
func (s *StatusServer) getNotifications(ctx echo.Context) error {
	recent := s.deps.Notifications.Recent()
	if recent == nil {
		recent = []notify.Notification{}
	}
	return ctx.JSON(http.StatusOK, recent)
}
