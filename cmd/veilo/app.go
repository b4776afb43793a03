package main

import (
	"context"
	"sync"

	"veilo/pkg/client"
	"veilo/pkg/config"
	"veilo/pkg/connection"
	"veilo/pkg/emergency"
	"veilo/pkg/health"
	"veilo/pkg/log"
	"veilo/pkg/metrics"
	"veilo/pkg/mode"
	"veilo/pkg/models"
	"veilo/pkg/notify"
	"veilo/pkg/server"
)

// app owns every component built from one configuration.
type app struct {
	cfg        *config.Config
	state      *config.State
	bus        *notify.Bus
	metrics    *metrics.Metrics
	store      *emergency.Store
	executor   *client.Executor
	posts      *client.PostsAPI
	monitor    *health.Monitor
	manager    *connection.Manager
	controller *mode.Controller
	server     *server.StatusServer

	wg            sync.WaitGroup
	unsubscribers []func()

	searchMu   sync.Mutex
	searching  bool
	allOffline bool
}

func newApp(cfg *config.Config) (*app, error) {
	store, err := emergency.NewStore(cfg.EmergencyDB)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		state:   config.NewState(cfg.APIURL),
		bus:     notify.NewBus(0),
		metrics: metrics.New(),
		store:   store,
	}

	prober := client.NewProber(cfg.HealthPath)
	a.executor = client.NewExecutor(a.state, client.ExecutorOptions{
		RetryMax:     cfg.Retries(),
		RetryWaitMin: cfg.RetryWaitMin,
		RetryWaitMax: cfg.RetryWaitMax,
		Timeout:      cfg.RequestTimeout,
		Saver:        store,
		Notifier:     a.bus,
		Metrics:      a.metrics,
	})
	a.posts = client.NewPostsAPI(a.executor)
	a.monitor = health.NewMonitor(a.state, prober, health.Options{
		Interval: cfg.HealthInterval,
		Timeout:  cfg.HealthTimeout,
		Notifier: a.bus,
		Metrics:  a.metrics,
	})
	a.manager = connection.NewManager(a.state, prober, cfg.FallbackURLs, connection.Options{
		ProbeTimeout: cfg.ProbeTimeout,
		LogSize:      cfg.AttemptLogSize,
		Notifier:     notify.NotifierFunc(a.notifySearch),
		Metrics:      a.metrics,
	})
	a.controller = mode.NewController(a.bus, a.metrics)
	a.server = server.NewStatusServer(server.Deps{
		Health:        a.monitor,
		Connection:    a.manager,
		Mode:          a.controller,
		Store:         store,
		Notifications: a.bus,
		Metrics:       a.metrics,
		Version:       version,
	})

	a.unsubscribers = append(a.unsubscribers,
		a.monitor.Subscribe(a.controller.Observe),
		a.state.Subscribe(func(baseURL string) {
			log.Info().Str("backend", baseURL).Msg("Pinned backend changed")
		}),
	)
	return a, nil
}

// watchFailover searches the candidate list on every check that finds the
// pinned backend unhealthy, so a recovered fallback is picked up on the next
// tick. At most one search runs at a time.
func (a *app) watchFailover(ctx context.Context) {
	unsubscribe := a.monitor.Subscribe(func(status models.HealthStatus) {
		a.searchMu.Lock()
		if status.IsHealthy {
			a.allOffline = false
		}
		if status.IsHealthy || a.searching {
			a.searchMu.Unlock()
			return
		}
		a.searching = true
		a.searchMu.Unlock()

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			defer func() {
				a.searchMu.Lock()
				a.searching = false
				a.searchMu.Unlock()
			}()

			backend, err := a.manager.FindHealthyBackend(ctx)
			if err != nil {
				log.Debug().Err(err).Str("backend", backend).Msg("Failover found no healthy backend")
				return
			}
			a.searchMu.Lock()
			a.allOffline = false
			a.searchMu.Unlock()
			a.monitor.Check(ctx)
		}()
	})
	a.unsubscribers = append(a.unsubscribers, unsubscribe)
}

// notifySearch forwards connection manager notifications to the bus. The
// all-offline toast is sent once per outage instead of once per search.
func (a *app) notifySearch(n notify.Notification) {
	if n.Kind == notify.KindAllOffline {
		a.searchMu.Lock()
		repeated := a.allOffline
		a.allOffline = true
		a.searchMu.Unlock()
		if repeated {
			return
		}
	}
	a.bus.Notify(n)
}

// close releases subscriptions, waits for background failovers and closes the store.
func (a *app) close() {
	for _, unsubscribe := range a.unsubscribers {
		unsubscribe()
	}
	a.wg.Wait()

	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close emergency store")
	}
}
