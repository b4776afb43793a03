package mode

import (
	"testing"
	"time"

	"veilo/pkg/metrics"
	"veilo/pkg/models"
	"veilo/pkg/notify"

	"github.com/stretchr/testify/suite"
)

func status(s models.Status) models.HealthStatus {
	return models.HealthStatus{
		IsHealthy: s == models.StatusHealthy,
		Status:    s,
		Timestamp: time.Now(),
	}
}

// ControllerTestSuite tests emergency mode transitions
type ControllerTestSuite struct {
	suite.Suite
	bus        *notify.Bus
	metrics    *metrics.Metrics
	controller *Controller
}

func (s *ControllerTestSuite) SetupTest() {
	s.bus = notify.NewBus(20)
	s.metrics = metrics.New()
	s.controller = NewController(s.bus, s.metrics)
}

func (s *ControllerTestSuite) gauge() float64 {
	families, err := s.metrics.Registry().Gather()
	s.Require().NoError(err)
	for _, family := range families {
		if family.GetName() == "veilo_emergency_mode" {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	s.Fail("emergency gauge not registered")
	return -1
}

func (s *ControllerTestSuite) TestStartsInNormalMode() {
	s.False(s.controller.Emergency())
	s.Empty(s.bus.Recent())
	s.Equal(0.0, s.gauge())
}

func (s *ControllerTestSuite) TestEntersAndLeavesOncePerTransition() {
	s.controller.Observe(status(models.StatusHealthy))
	s.controller.Observe(status(models.StatusDegraded))
	s.controller.Observe(status(models.StatusDown))
	s.controller.Observe(status(models.StatusDown))

	s.True(s.controller.Emergency())
	s.Equal(1.0, s.gauge())

	s.controller.Observe(status(models.StatusHealthy))
	s.controller.Observe(status(models.StatusHealthy))

	s.False(s.controller.Emergency())
	s.Equal(0.0, s.gauge())

	recent := s.bus.Recent()
	s.Require().Len(recent, 2)
	s.Equal(notify.KindOfflineMode, recent[0].Kind)
	s.Equal("Offline mode enabled - posts will be saved locally", recent[0].Message)
	s.Equal(notify.KindBackOnline, recent[1].Kind)
	s.Equal("Back online", recent[1].Message)
}

func (s *ControllerTestSuite) TestManualOverrideLastsForCycle() {
	s.controller.Observe(status(models.StatusHealthy))
	s.controller.SetEmergency(true)

	snapshot := s.controller.Snapshot()
	s.True(snapshot.Emergency)
	s.True(snapshot.Manual)
	s.Equal(uint64(1), snapshot.Cycle)
	s.Equal(1, s.bus.Count(notify.KindOfflineMode))

	s.controller.Observe(status(models.StatusHealthy))

	snapshot = s.controller.Snapshot()
	s.False(snapshot.Emergency)
	s.False(snapshot.Manual)
	s.Equal(uint64(2), snapshot.Cycle)
	s.Equal(1, s.bus.Count(notify.KindBackOnline))
}

func (s *ControllerTestSuite) TestManualOverrideWinsWithinCycle() {
	s.controller.Observe(status(models.StatusDown))
	s.True(s.controller.Emergency())

	s.controller.SetEmergency(false)
	s.False(s.controller.Emergency())
	s.True(s.controller.Snapshot().Manual)

	s.controller.Observe(status(models.StatusDown))
	s.True(s.controller.Emergency())
	s.Equal(2, s.bus.Count(notify.KindOfflineMode))
}

func (s *ControllerTestSuite) TestManualNoChangeDoesNotNotify() {
	s.controller.SetEmergency(false)
	s.Empty(s.bus.Recent())
	s.True(s.controller.Snapshot().Manual)
}

func (s *ControllerTestSuite) TestSubscribers() {
	var changes []bool
	unsubscribe := s.controller.Subscribe(func(emergency bool) {
		changes = append(changes, emergency)
	})

	s.controller.Observe(status(models.StatusDown))
	s.controller.Observe(status(models.StatusDegraded))
	s.controller.Observe(status(models.StatusHealthy))
	unsubscribe()
	s.controller.Observe(status(models.StatusDown))

	s.Equal([]bool{true, false}, changes)
}

func (s *ControllerTestSuite) TestSnapshotKeepsLastHealth() {
	down := status(models.StatusDown)
	down.Error = "backend unreachable"
	s.controller.Observe(down)

	snapshot := s.controller.Snapshot()
	s.Equal(models.StatusDown, snapshot.Health.Status)
	s.Equal("backend unreachable", snapshot.Health.Error)
}

func (s *ControllerTestSuite) TestNilDependencies() {
	controller := NewController(nil, nil)
	s.NotPanics(func() {
		controller.Observe(status(models.StatusDown))
		controller.SetEmergency(false)
	})
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}
