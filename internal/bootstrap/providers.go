package bootstrap

import (
	"time"

	chclient "optix/internal/adapters/clickhouse"
	"optix/internal/adapters/kafka"
	redisclient "optix/internal/adapters/redis"
	"optix/internal/adapters/retry"
	"optix/internal/alerts"
	"optix/internal/alerts/channels"
	"optix/internal/api"
	"optix/internal/api/health"
	"optix/internal/consumers"
	"optix/internal/domain/alert"
	"optix/internal/flow/aggregator"
	"optix/internal/flow/engine"
	"optix/internal/metrics"
	chrepo "optix/internal/repository/clickhouse"
	"optix/pkg/errors"
)

// ========================================
// Phase 1: Infrastructure
// ========================================

func (c *Container) initInfrastructure() error {
	cfg := c.Config

	if cfg.ClickHouse.Enabled {
		ch, err := chclient.NewClient(c.Context, cfg.ClickHouse)
		if err != nil {
			return errors.Wrap(err, "clickhouse")
		}
		if err := ch.Migrate(c.Context, chrepo.Migrations...); err != nil {
			_ = ch.Close()
			return errors.Wrap(err, "clickhouse migrations")
		}
		c.CH = ch
		c.Log.Infow("ClickHouse connected", "host", cfg.ClickHouse.Host, "database", cfg.ClickHouse.Database)
	}

	if cfg.Redis.Enabled {
		rc, err := redisclient.NewClient(c.Context, cfg.Redis)
		if err != nil {
			return errors.Wrap(err, "redis")
		}
		c.Redis = rc
		c.Log.Infow("Redis connected", "addr", cfg.Redis.Addr())
	}

	if cfg.Kafka.Enabled {
		c.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		c.TradesReader = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   cfg.Kafka.TradesTopic,
		})
	}
	return nil
}

// ========================================
// Phase 2: Flow pipeline
// ========================================

func (c *Container) initFlow() {
	cfg := c.Config
	f := c.Flow

	f.Alerts = alerts.NewManager(cfg.Alerts.Manager, alerts.WithPolicy(cfg.SeverityPolicy()))
	f.Aggregator = aggregator.New(cfg.Aggregator, aggregator.WithClock(time.Now))

	deps := engine.Deps{
		Alerts:     f.Alerts,
		Aggregator: f.Aggregator,
	}
	if c.CH != nil {
		repo := chrepo.NewFlowRepository(c.CH.Conn())
		f.History = chrepo.NewHistory(chrepo.HistoryConfig{
			BatchSize:     cfg.ClickHouse.BatchSize,
			FlushInterval: cfg.ClickHouse.FlushInterval,
		}, repo, repo, repo)
		deps.Sink = f.History
	}

	f.Engine = engine.New(cfg.EngineConfig(), deps)
}

// ========================================
// Phase 3: Delivery
// ========================================

func (c *Container) initDispatch() error {
	dc := c.Config.Dispatch
	d := alerts.NewDispatcher(dc.Queue)

	if dc.ConsoleEnabled {
		d.Register(channels.NewConsole(), alert.SeverityInfo)
	}

	if dc.WebhookURL != "" {
		rc := retry.DefaultConfig()
		rc.MaxRetries = dc.WebhookMaxRetries
		wh, err := channels.NewWebhook(channels.WebhookConfig{
			URL:               dc.WebhookURL,
			RequestsPerMinute: dc.WebhookRatePerMin,
			Retry:             rc,
		})
		if err != nil {
			return errors.Wrap(err, "webhook channel")
		}
		d.Register(wh, dc.WebhookMinSeverity)
	}

	if dc.TelegramToken != "" {
		bot, err := channels.NewTelegramBot(dc.TelegramToken)
		if err != nil {
			return errors.Wrap(err, "telegram channel")
		}
		d.Register(channels.NewTelegram(bot, dc.TelegramChatID), dc.TelegramMinSeverity)
	}

	if c.KafkaProducer != nil && dc.KafkaEnabled {
		d.Register(channels.NewKafka(c.KafkaProducer, c.Config.Kafka.AlertsTopic), alert.SeverityInfo)
	}

	c.Flow.Dispatcher = d
	return nil
}

// ========================================
// Phase 4: HTTP surface
// ========================================

func (c *Container) initApplication() {
	cfg := c.Config.App

	h := health.New(cfg.Name, cfg.Version)
	if c.CH != nil {
		h.Register("clickhouse", c.CH)
	}
	if c.Redis != nil {
		h.Register("redis", c.Redis)
	}

	if err := metrics.RegisterState(pipelineState{engine: c.Flow.Engine, dispatcher: c.Flow.Dispatcher}); err != nil {
		c.Log.Warnw("State collector not registered", "error", err)
	}

	c.Application.HealthHandler = h
	c.Application.HTTPServer = api.NewServer(api.ServerConfig{
		Port:        cfg.HTTPPort,
		ServiceName: cfg.Name,
		Version:     cfg.Version,
	}, h)
}

// ========================================
// Phase 5: Background
// ========================================

func (c *Container) initBackground() {
	c.Background.WorkerScheduler = provideScheduler(c)

	if c.TradesReader != nil {
		c.Background.TradeConsumer = consumers.NewTradeConsumer(c.TradesReader, c.Flow.Engine)
	}
}

// pipelineState feeds the scrape-time gauges
type pipelineState struct {
	engine     *engine.Engine
	dispatcher *alerts.Dispatcher
}

func (s pipelineState) TrackedSymbols() int {
	return s.engine.TrackedSymbols()
}

func (s pipelineState) AlertCounts() map[string]int {
	return s.engine.AlertCounts()
}

func (s pipelineState) QueueDepth() int {
	return s.dispatcher.QueueDepth()
}
