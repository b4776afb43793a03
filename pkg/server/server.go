// Package server exposes the resilience layer state over a local HTTP status endpoint.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"veilo/pkg/log"
	"veilo/pkg/metrics"
	"veilo/pkg/mode"
	"veilo/pkg/models"
	"veilo/pkg/notify"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// HealthChecker is the health monitor as seen by the status server.
type HealthChecker interface {
	Status() models.HealthStatus
	Check(ctx context.Context) models.HealthStatus
}

// BackendFinder is the connection manager as seen by the status server.
type BackendFinder interface {
	FindHealthyBackend(ctx context.Context) (string, error)
	Candidates() []string
	Attempts() []models.ConnectionAttempt
	Stats() models.ConnectionStats
}

// ModeSwitch is the mode controller as seen by the status server.
type ModeSwitch interface {
	Snapshot() mode.Snapshot
	SetEmergency(on bool)
}

// OfflineStore is the emergency store as seen by the status server.
type OfflineStore interface {
	ListOffline(ctx context.Context) []models.EmergencyPost
	Count(ctx context.Context) int
	ClearOffline(ctx context.Context) error
}

// NotificationSource returns recently emitted notifications.
type NotificationSource interface {
	Recent() []notify.Notification
}

// Deps are the components served by the status server. Metrics may be nil.
type Deps struct {
	Health        HealthChecker
	Connection    BackendFinder
	Mode          ModeSwitch
	Store         OfflineStore
	Notifications NotificationSource
	Metrics       *metrics.Metrics
	Version       string
}

// StatusServer serves read-mostly operator endpoints for a running client.
type StatusServer struct {
	deps Deps
	echo *echo.Echo

	mu       sync.Mutex
	listener net.Listener
}

// NewStatusServer creates the server and registers its routes.
func NewStatusServer(deps Deps) *StatusServer {
	s := &StatusServer{
		deps: deps,
		echo: echo.New(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *StatusServer) Handler() http.Handler {
	return s.echo
}

// Addr returns the bound address once Start has succeeded.
func (s *StatusServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds addr and serves in the background. Bind errors are returned directly.
func (s *StatusServer) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.echo.Listener = listener
	s.mu.Unlock()

	go func() {
		log.Info().
			Str("addr", listener.Addr().String()).
			Str("version", s.deps.Version).
			Msg("Starting status server")

		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Status server stopped unexpectedly")
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *StatusServer) Shutdown() error {
	log.Info().Msg("Shutting down status server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Status server shutdown failed")
		return err
	}

	log.Info().Msg("Status server stopped")
	return nil
}

func (s *StatusServer) setupRoutes() {
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
		Output: log.Logger,
	}))
	s.echo.Use(middleware.Recover())

	s.echo.GET("/status", s.getStatus)
	s.echo.POST("/health/check", s.checkHealth)
	s.echo.GET("/backends", s.getBackends)
	s.echo.POST("/backends/probe", s.probeBackends)
	s.echo.GET("/offline", s.listOffline)
	s.echo.DELETE("/offline", s.clearOffline)
	s.echo.PUT("/mode", s.setMode)
	s.echo.GET("/notifications", s.getNotifications)
	s.echo.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
}
