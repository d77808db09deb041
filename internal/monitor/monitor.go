package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fleetvis-io/fleetvis/pkg/log"
	"github.com/fleetvis-io/fleetvis/pkg/mqtt"
	"github.com/fleetvis-io/fleetvis/pkg/options"
	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

// Config is the monitor's effective runtime configuration.
type Config struct {
	MqttOptions *options.MqttOptions
	HttpOptions *options.HttpOptions
}

// Monitor wires the transport, the session layer and the HTTP surface
// together. One Monitor owns one broker connection shared by all vehicles.
type Monitor struct {
	cfg     *Config
	log     log.Logger
	metrics *Metrics

	registry *Registry
	fanout   *Fanout
	msgLog   *MessageLog
	router   *Router

	client mqtt.Client
	topics *vda5050.TopicBuilder
	api    *API
}

// NewMonitor assembles a Monitor from the given configuration.
func (cfg *Config) NewMonitor() (*Monitor, error) {
	logger := log.WithName("monitor")

	metrics := NewMetrics()
	registry := NewRegistry(nil)
	fanout := NewFanout(logger.WithName("fanout"), metrics)
	msgLog := NewMessageLog()
	router := NewRouter(registry, fanout, msgLog, metrics, logger.WithName("router"))

	m := &Monitor{
		cfg:      cfg,
		log:      logger,
		metrics:  metrics,
		registry: registry,
		fanout:   fanout,
		msgLog:   msgLog,
		router:   router,
		topics:   vda5050.NewTopicBuilder(cfg.MqttOptions.InterfaceName, cfg.MqttOptions.MajorVersion),
	}

	client, err := mqtt.NewClient(cfg.MqttOptions.ToClientConfig(), mqtt.Events{
		OnConnected: func() {
			logger.Info("Broker connection up")
		},
		OnReconnecting: func() {
			metrics.Reconnects.Inc()
			logger.Warn("Broker connection lost, reconnecting")
		},
		OnDisconnected: func() {
			logger.Warn("Broker connection down")
		},
		OnError: func(err error) {
			logger.Error(err, "Broker connection error")
		},
		OnMessage: router.Route,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mqtt client: %w", err)
	}
	m.client = client

	m.api = NewAPI(registry, msgLog, metrics, client, logger.WithName("api"))
	return m, nil
}

// Registry exposes the session registry, for embedding the monitor in other
// programs.
func (m *Monitor) Registry() *Registry {
	return m.registry
}

// SubscribeMessages registers an observer for every inbound envelope and
// returns its unsubscribe function.
func (m *Monitor) SubscribeMessages(fn Subscriber) func() {
	return m.fanout.Subscribe(fn)
}

// Run connects to the broker, subscribes to all five message categories and
// serves the HTTP API until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}
	defer m.client.Disconnect(context.Background())

	if err := m.client.Subscribe(ctx, 0, m.topics.SubscriptionPatterns()...); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.runHTTPServer(ctx)
	})

	return g.Wait()
}

func (m *Monitor) runHTTPServer(ctx context.Context) error {
	server := &http.Server{
		Addr:        m.cfg.HttpOptions.Addr,
		Handler:     m.api.Routes(),
		ReadTimeout: m.cfg.HttpOptions.Timeout,
	}

	m.log.Info("HTTP server listening", "address", m.cfg.HttpOptions.Addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run http server: %w", err)
	}
	return nil
}
