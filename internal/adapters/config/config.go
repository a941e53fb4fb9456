package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"optix/internal/alerts"
	"optix/internal/domain/alert"
	"optix/internal/domain/detection"
	"optix/internal/flow/aggregator"
	"optix/internal/flow/analysis"
	"optix/internal/flow/detectors"
	"optix/internal/flow/engine"
	"optix/pkg/errors"
)

type Config struct {
	App           AppConfig
	Kafka         KafkaConfig
	Redis         RedisConfig
	ClickHouse    ClickHouseConfig
	ErrorTracking ErrorTrackingConfig
	Detectors     DetectorsConfig   `envconfig:"DETECTOR"`
	Analysis      AnalysisConfig    `envconfig:"ANALYSIS"`
	Aggregator    aggregator.Config `envconfig:"AGGREGATOR"`
	Alerts        AlertsConfig      `envconfig:"ALERT"`
	Dispatch      DispatchConfig    `envconfig:"DISPATCH"`
	Workers       WorkerConfig
}

type AppConfig struct {
	Name            string        `envconfig:"APP_NAME" default:"optix"`
	Env             string        `envconfig:"APP_ENV" default:"development"`
	Version         string        `envconfig:"APP_VERSION" default:"dev"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort        int           `envconfig:"HTTP_PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

type KafkaConfig struct {
	Enabled     bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers     []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	GroupID     string   `envconfig:"KAFKA_GROUP_ID" default:"optix"`
	TradesTopic string   `envconfig:"KAFKA_TRADES_TOPIC" default:"optix.trades"`
	AlertsTopic string   `envconfig:"KAFKA_ALERTS_TOPIC" default:"optix.alerts"`
}

type RedisConfig struct {
	Enabled     bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host        string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port        int           `envconfig:"REDIS_PORT" default:"6379"`
	Password    string        `envconfig:"REDIS_PASSWORD"`
	DB          int           `envconfig:"REDIS_DB" default:"0"`
	SnapshotTTL time.Duration `envconfig:"REDIS_SNAPSHOT_TTL" default:"5m"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ClickHouseConfig struct {
	Enabled       bool          `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host          string        `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port          int           `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User          string        `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password      string        `envconfig:"CLICKHOUSE_PASSWORD"`
	Database      string        `envconfig:"CLICKHOUSE_DB" default:"optix"`
	BatchSize     int           `envconfig:"CLICKHOUSE_BATCH_SIZE" default:"500"`
	FlushInterval time.Duration `envconfig:"CLICKHOUSE_FLUSH_INTERVAL" default:"5s"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// DetectorsConfig carries every single-trade detector threshold
type DetectorsConfig struct {
	Sweep    detectors.SweepConfig    `envconfig:"SWEEP"`
	Block    detectors.BlockConfig    `envconfig:"BLOCK"`
	DarkPool detectors.DarkPoolConfig `envconfig:"DARK_POOL"`
}

// AnalysisConfig covers window analysis, dealer estimation and the evaluation cadence
type AnalysisConfig struct {
	Flow             analysis.FlowConfig   `envconfig:"FLOW"`
	Dealer           analysis.DealerConfig `envconfig:"DEALER"`
	EvaluateEvery    int                   `envconfig:"EVALUATE_EVERY" default:"5"`
	EvaluateInterval time.Duration         `envconfig:"EVALUATE_INTERVAL" default:"60s"`
	HistoryWindow    time.Duration         `envconfig:"HISTORY_WINDOW" default:"60m"`
	MaxHistory       int                   `envconfig:"MAX_HISTORY" default:"20000"`
	RecentIDs        int                   `envconfig:"RECENT_IDS" default:"4096"`
}

// AlertsConfig holds alert manager settings and severity floors
type AlertsConfig struct {
	Manager       alerts.Config  `envconfig:"MANAGER"`
	SweepFloor    alert.Severity `envconfig:"SWEEP_FLOOR" default:"HIGH"`
	BlockFloor    alert.Severity `envconfig:"BLOCK_FLOOR" default:"INFO"`
	DarkPoolFloor alert.Severity `envconfig:"DARK_POOL_FLOOR" default:"LOW"`
}

// DispatchConfig holds the delivery pipeline and channel settings
type DispatchConfig struct {
	Queue          alerts.DispatcherConfig `envconfig:"QUEUE"`
	ConsoleEnabled bool                    `envconfig:"CONSOLE_ENABLED" default:"true"`

	WebhookURL         string         `envconfig:"WEBHOOK_URL"`
	WebhookRatePerMin  int            `envconfig:"WEBHOOK_RATE_PER_MIN" default:"60"`
	WebhookMaxRetries  int            `envconfig:"WEBHOOK_MAX_RETRIES" default:"3"`
	WebhookMinSeverity alert.Severity `envconfig:"WEBHOOK_MIN_SEVERITY" default:"MEDIUM"`

	TelegramToken       string         `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID      int64          `envconfig:"TELEGRAM_CHAT_ID"`
	TelegramMinSeverity alert.Severity `envconfig:"TELEGRAM_MIN_SEVERITY" default:"HIGH"`

	KafkaEnabled bool `envconfig:"KAFKA_CHANNEL_ENABLED" default:"true"` // effective only when Kafka is enabled
}

// WorkerConfig contains intervals for the background workers
type WorkerConfig struct {
	RetentionInterval time.Duration `envconfig:"WORKER_RETENTION_INTERVAL" default:"1m"`
	SnapshotInterval  time.Duration `envconfig:"WORKER_SNAPSHOT_INTERVAL" default:"15s"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid value at once
func (c *Config) Validate() error {
	var merr errors.MultiError
	check := func(ok bool, field, msg string, value interface{}) {
		if !ok {
			merr.Add(errors.NewValidationError(field, msg, value))
		}
	}

	check(c.App.HTTPPort > 0 && c.App.HTTPPort < 65536, "HTTP_PORT", "must be a valid port", c.App.HTTPPort)
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		check(false, "LOG_LEVEL", "must be debug, info, warn or error", c.App.LogLevel)
	}

	if c.Kafka.Enabled {
		check(len(c.Kafka.Brokers) > 0, "KAFKA_BROKERS", "required when kafka is enabled", c.Kafka.Brokers)
		check(c.Kafka.TradesTopic != "", "KAFKA_TRADES_TOPIC", "is required", c.Kafka.TradesTopic)
	}
	if c.ErrorTracking.Enabled {
		check(c.ErrorTracking.SentryDSN != "", "SENTRY_DSN", "required when error tracking is enabled", "")
	}
	if c.ClickHouse.Enabled {
		check(c.ClickHouse.BatchSize > 0, "CLICKHOUSE_BATCH_SIZE", "must be positive", c.ClickHouse.BatchSize)
	}

	sw := c.Detectors.Sweep
	check(sw.MinLegs >= 2, "DETECTOR_SWEEP_MIN_LEGS", "must be at least 2", sw.MinLegs)
	check(sw.MinExchanges >= 1, "DETECTOR_SWEEP_MIN_EXCHANGES", "must be at least 1", sw.MinExchanges)
	check(sw.MaxTimeWindow > 0, "DETECTOR_SWEEP_MAX_TIME_WINDOW", "must be positive", sw.MaxTimeWindow)
	check(sw.BufferLookback >= sw.MaxTimeWindow, "DETECTOR_SWEEP_BUFFER_LOOKBACK", "must cover the sweep window", sw.BufferLookback)
	sum := sw.WeightExchanges + sw.WeightTightness + sw.WeightAggressive
	check(sum > 0.999 && sum < 1.001, "DETECTOR_SWEEP_WEIGHT_*", "weights must sum to 1", sum)

	bl := c.Detectors.Block
	check(bl.SizePercentile > 0 && bl.SizePercentile <= 100, "DETECTOR_BLOCK_SIZE_PERCENTILE", "must be in (0, 100]", bl.SizePercentile)
	check(bl.MinContracts > 0, "DETECTOR_BLOCK_MIN_CONTRACTS", "must be positive", bl.MinContracts)

	dp := c.Detectors.DarkPool
	check(len(dp.Venues) > 0, "DETECTOR_DARK_POOL_VENUES", "must list at least one venue", dp.Venues)

	fl := c.Analysis.Flow
	check(fl.Window > 0, "ANALYSIS_FLOW_WINDOW", "must be positive", fl.Window)
	check(fl.MinDirectionalShare > 0.5 && fl.MinDirectionalShare <= 1, "ANALYSIS_FLOW_MIN_DIRECTIONAL_SHARE", "must be in (0.5, 1]", fl.MinDirectionalShare)
	check(fl.VolumeBucket > 0, "ANALYSIS_FLOW_VOLUME_BUCKET", "must be positive", fl.VolumeBucket)
	check(c.Analysis.Dealer.DefaultIV > 0, "ANALYSIS_DEALER_DEFAULT_IV", "must be positive", c.Analysis.Dealer.DefaultIV)
	check(c.Analysis.EvaluateEvery >= 1, "ANALYSIS_EVALUATE_EVERY", "must be at least 1", c.Analysis.EvaluateEvery)
	check(c.Analysis.HistoryWindow >= fl.Window, "ANALYSIS_HISTORY_WINDOW", "must cover the flow window", c.Analysis.HistoryWindow)

	check(c.Aggregator.Window > 0, "AGGREGATOR_WINDOW", "must be positive", c.Aggregator.Window)
	check(c.Alerts.Manager.DedupWindow >= 0, "ALERT_MANAGER_DEDUP_WINDOW", "must not be negative", c.Alerts.Manager.DedupWindow)

	q := c.Dispatch.Queue
	check(q.Workers >= 1, "DISPATCH_QUEUE_WORKERS", "must be at least 1", q.Workers)
	check(q.QueueSize >= 1, "DISPATCH_QUEUE_QUEUE_SIZE", "must be at least 1", q.QueueSize)
	if c.Dispatch.TelegramToken != "" {
		check(c.Dispatch.TelegramChatID != 0, "DISPATCH_TELEGRAM_CHAT_ID", "required with a bot token", c.Dispatch.TelegramChatID)
	}

	check(c.Workers.RetentionInterval > 0, "WORKER_RETENTION_INTERVAL", "must be positive", c.Workers.RetentionInterval)
	check(c.Workers.SnapshotInterval > 0, "WORKER_SNAPSHOT_INTERVAL", "must be positive", c.Workers.SnapshotInterval)

	if merr.HasErrors() {
		return errors.Tag(errors.ErrInvalidInput, merr.ToError())
	}
	return nil
}

// EngineConfig builds the flow engine configuration
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		EvaluateEvery:    c.Analysis.EvaluateEvery,
		EvaluateInterval: c.Analysis.EvaluateInterval,
		HistoryWindow:    c.Analysis.HistoryWindow,
		MaxHistory:       c.Analysis.MaxHistory,
		RecentIDs:        c.Analysis.RecentIDs,
		Sweep:            c.Detectors.Sweep,
		Block:            c.Detectors.Block,
		DarkPool:         c.Detectors.DarkPool,
		Flow:             c.Analysis.Flow,
		Dealer:           c.Analysis.Dealer,
		Aggregator:       c.Aggregator,
	}
}

// SeverityPolicy builds the alert severity policy with the configured floors
func (c *Config) SeverityPolicy() alerts.SeverityPolicy {
	p := alerts.DefaultSeverityPolicy()
	p.Floors = map[alert.Type]alert.Severity{
		alert.Type(detection.TypeSweep):    c.Alerts.SweepFloor,
		alert.Type(detection.TypeBlock):    c.Alerts.BlockFloor,
		alert.Type(detection.TypeDarkPool): c.Alerts.DarkPoolFloor,
	}
	return p
}
