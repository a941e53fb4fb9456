package bootstrap

import (
	"context"
	"sync"

	chclient "optix/internal/adapters/clickhouse"
	"optix/internal/adapters/config"
	"optix/internal/adapters/kafka"
	redisclient "optix/internal/adapters/redis"
	"optix/internal/alerts"
	"optix/internal/api"
	"optix/internal/api/health"
	"optix/internal/consumers"
	"optix/internal/flow/aggregator"
	"optix/internal/flow/engine"
	chrepo "optix/internal/repository/clickhouse"
	"optix/internal/workers"
	"optix/pkg/errors"
	"optix/pkg/logger"
)

// Container holds all application dependencies and their lifecycle.
// Optional infrastructure stays nil when disabled in config
type Container struct {
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure
	CH            *chclient.Client
	Redis         *redisclient.Client
	KafkaProducer *kafka.Producer
	TradesReader  *kafka.Consumer

	Flow        *Flow
	Application *Application
	Background  *Background

	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Flow groups the pipeline components
type Flow struct {
	Alerts     *alerts.Manager
	Aggregator *aggregator.Aggregator
	Engine     *engine.Engine
	Dispatcher *alerts.Dispatcher
	History    *chrepo.History

	detach func()
}

// Application groups the HTTP surface
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
}

// Background groups long-running loops
type Background struct {
	WorkerScheduler *workers.Scheduler
	TradeConsumer   *consumers.TradeConsumer
}

// NewContainer creates an empty container bound to cfg
func NewContainer(cfg *config.Config, tracker errors.Tracker) *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Config:       cfg,
		Log:          logger.Component("bootstrap"),
		ErrorTracker: tracker,
		Flow:         &Flow{},
		Application:  &Application{},
		Background:   &Background{},
		Lifecycle:    NewLifecycle(cfg.App.ShutdownTimeout),
		WG:           &sync.WaitGroup{},
		Context:      ctx,
		Cancel:       cancel,
	}
}

// Init wires every component. Infrastructure failures abort startup
func (c *Container) Init() error {
	if err := c.initInfrastructure(); err != nil {
		return err
	}
	c.initFlow()
	if err := c.initDispatch(); err != nil {
		return err
	}
	c.initApplication()
	c.initBackground()
	return nil
}

// Start launches every loop in startup order
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	// Delivery and history outlive the root context so Shutdown can drain them
	if h := c.Flow.History; h != nil {
		h.Start(context.Background())
	}

	c.Flow.Dispatcher.Start(context.Background())
	c.Flow.detach = c.Flow.Dispatcher.Attach(c.Flow.Alerts, alerts.Filter{})

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	if tc := c.Background.TradeConsumer; tc != nil {
		c.WG.Add(1)
		go func() {
			defer c.WG.Done()
			if err := tc.Start(c.Context); err != nil {
				c.Log.Errorw("Trade consumer failed", "error", err)
				c.Cancel()
			}
		}()
		c.Log.Infow("Trade consumer started", "topic", c.Config.Kafka.TradesTopic)
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorw("HTTP server failed", "error", err)
			c.Cancel()
		}
	}()

	c.Log.Info("All systems operational")
	return nil
}

// Shutdown stops everything in reverse dependency order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")
	c.Lifecycle.Shutdown(c)
}

// Engine returns the flow engine
func (c *Container) Engine() *engine.Engine {
	return c.Flow.Engine
}
