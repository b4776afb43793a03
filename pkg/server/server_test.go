package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"veilo/pkg/client"
	"veilo/pkg/config"
	"veilo/pkg/connection"
	"veilo/pkg/emergency"
	"veilo/pkg/health"
	"veilo/pkg/metrics"
	"veilo/pkg/mode"
	"veilo/pkg/models"
	"veilo/pkg/notify"

	"github.com/stretchr/testify/suite"
)

// StatusServerTestSuite tests the operator endpoints
type StatusServerTestSuite struct {
	suite.Suite
	backend    *httptest.Server
	healthy    atomic.Bool
	store      *emergency.Store
	bus        *notify.Bus
	monitor    *health.Monitor
	manager    *connection.Manager
	controller *mode.Controller
	server     *StatusServer
}

func (s *StatusServerTestSuite) SetupTest() {
	s.healthy.Store(true)
	s.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.healthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<!DOCTYPE html><html><body>502</body></html>"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))

	var err error
	s.store, err = emergency.NewStore(filepath.Join(s.T().TempDir(), "emergency.db"))
	s.Require().NoError(err)

	m := metrics.New()
	s.bus = notify.NewBus(10)
	state := config.NewState(s.backend.URL)
	prober := client.NewProber(config.DefaultHealthPath)
	s.monitor = health.NewMonitor(state, prober, health.Options{Timeout: time.Second, Notifier: s.bus, Metrics: m})
	s.manager = connection.NewManager(state, prober, nil, connection.Options{ProbeTimeout: time.Second, Notifier: s.bus, Metrics: m})
	s.controller = mode.NewController(s.bus, m)
	s.monitor.Subscribe(s.controller.Observe)

	s.server = NewStatusServer(Deps{
		Health:        s.monitor,
		Connection:    s.manager,
		Mode:          s.controller,
		Store:         s.store,
		Notifications: s.bus,
		Metrics:       m,
		Version:       "test",
	})
}

func (s *StatusServerTestSuite) TearDownTest() {
	s.backend.Close()
	s.Require().NoError(s.store.Close())
}

func (s *StatusServerTestSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (s *StatusServerTestSuite) TestStatus() {
	s.monitor.Check(context.Background())
	_, err := s.store.CreateOffline(context.Background(), models.PostInput{Content: "saved while offline"})
	s.Require().NoError(err)

	rec := s.do(http.MethodGet, "/status", "")
	s.Equal(http.StatusOK, rec.Code)

	var response StatusResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Equal("test", response.Version)
	s.Equal(s.backend.URL, response.Backend)
	s.Equal(models.StatusHealthy, response.Health.Status)
	s.False(response.Mode.Emergency)
	s.Equal(1, response.OfflinePosts)
}

func (s *StatusServerTestSuite) TestHealthCheckDrivesMode() {
	s.healthy.Store(false)

	rec := s.do(http.MethodPost, "/health/check", "")
	s.Equal(http.StatusOK, rec.Code)

	var status models.HealthStatus
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	s.Equal(models.StatusDown, status.Status)
	s.True(s.controller.Emergency())
}

func (s *StatusServerTestSuite) TestProbeBackends() {
	rec := s.do(http.MethodPost, "/backends/probe", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), s.backend.URL)

	rec = s.do(http.MethodGet, "/backends", "")
	s.Equal(http.StatusOK, rec.Code)

	var response BackendsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Equal([]string{s.backend.URL}, response.Candidates)
	s.Require().Len(response.Attempts, 1)
	s.True(response.Attempts[0].Success)
	s.Equal(1, response.Stats.SuccessCount)
}

func (s *StatusServerTestSuite) TestProbeBackendsAllOffline() {
	s.healthy.Store(false)

	rec := s.do(http.MethodPost, "/backends/probe", "")
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Contains(rec.Body.String(), connection.ErrAllBackendsOffline.Error())
	s.Equal(1, s.bus.Count(notify.KindAllOffline))
}

func (s *StatusServerTestSuite) TestOfflineListAndClear() {
	for _, content := range []string{"first", "second"} {
		_, err := s.store.CreateOffline(context.Background(), models.PostInput{Content: content})
		s.Require().NoError(err)
	}

	rec := s.do(http.MethodGet, "/offline", "")
	s.Equal(http.StatusOK, rec.Code)
	var posts []models.EmergencyPost
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &posts))
	s.Require().Len(posts, 2)
	s.Equal("second", posts[0].Content)

	rec = s.do(http.MethodDelete, "/offline", "")
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/offline", "")
	s.JSONEq(`[]`, rec.Body.String())
}

func (s *StatusServerTestSuite) TestSetMode() {
	rec := s.do(http.MethodPut, "/mode", `{"emergency":true}`)
	s.Equal(http.StatusOK, rec.Code)

	var snapshot mode.Snapshot
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &snapshot))
	s.True(snapshot.Emergency)
	s.True(snapshot.Manual)
	s.True(s.controller.Emergency())
}

func (s *StatusServerTestSuite) TestSetModeRejectsMissingField() {
	rec := s.do(http.MethodPut, "/mode", `{}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.False(s.controller.Emergency())
}

func (s *StatusServerTestSuite) TestNotifications() {
	rec := s.do(http.MethodGet, "/notifications", "")
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`[]`, rec.Body.String())

	s.controller.SetEmergency(true)

	rec = s.do(http.MethodGet, "/notifications", "")
	var recent []notify.Notification
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &recent))
	s.Require().Len(recent, 1)
	s.Equal(notify.KindOfflineMode, recent[0].Kind)
}

func (s *StatusServerTestSuite) TestMetrics() {
	s.monitor.Check(context.Background())

	rec := s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `veilo_probes_total{source="health",status="healthy"} 1`)
}

func (s *StatusServerTestSuite) TestStartAndShutdown() {
	s.Require().NoError(s.server.Start("127.0.0.1:0"))
	addr := s.server.Addr()
	s.NotEmpty(addr)

	s.Eventually(func() bool {
		resp, err := http.Get("http://" + addr + "/status")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	s.NoError(s.server.Shutdown())
}

func (s *StatusServerTestSuite) TestStartBindError() {
	s.Require().NoError(s.server.Start("127.0.0.1:0"))
	defer s.server.Shutdown()

	other := NewStatusServer(s.server.deps)
	s.Error(other.Start(s.server.Addr()))
}

func TestStatusServerSuite(t *testing.T) {
	suite.Run(t, new(StatusServerTestSuite))
}
