package alerts

import (
	"context"
	"sync"
	"time"

	"optix/internal/domain/alert"
	"optix/internal/metrics"
	"optix/pkg/errors"
	"optix/pkg/logger"
)

// Channel delivers an alert to one destination
type Channel interface {
	Name() string
	Send(ctx context.Context, a alert.Alert) DeliveryResult
}

// DeliveryResult is the outcome of one channel send
type DeliveryResult struct {
	Channel     string        `json:"channel"`
	AlertID     string        `json:"alert_id"`
	Success     bool          `json:"success"`
	Attempts    int           `json:"attempts"`
	Err         error         `json:"-"`
	Latency     time.Duration `json:"latency"`
	DeliveredAt time.Time     `json:"delivered_at"`
}

// Failed builds an unsuccessful result
func Failed(channel string, a alert.Alert, attempts int, err error) DeliveryResult {
	return DeliveryResult{Channel: channel, AlertID: a.ID, Attempts: attempts, Err: err}
}

// Delivered builds a successful result
func Delivered(channel string, a alert.Alert, attempts int) DeliveryResult {
	return DeliveryResult{Channel: channel, AlertID: a.ID, Success: true, Attempts: attempts, DeliveredAt: time.Now()}
}

// DispatcherConfig sizes the delivery pipeline
type DispatcherConfig struct {
	Workers         int           `envconfig:"WORKERS" default:"2"`
	QueueSize       int           `envconfig:"QUEUE_SIZE" default:"256"`
	DeliveryTimeout time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"10s"`
	HistorySize     int           `envconfig:"HISTORY_SIZE" default:"100"`
}

// DefaultDispatcherConfig returns production defaults
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:         2,
		QueueSize:       256,
		DeliveryTimeout: 10 * time.Second,
		HistorySize:     100,
	}
}

type route struct {
	channel     Channel
	minSeverity alert.Severity
}

// Dispatcher fans alerts out to channels on worker goroutines.
// Enqueue never blocks the caller.
type Dispatcher struct {
	cfg    DispatcherConfig
	log    *logger.Logger
	queue  chan alert.Alert
	routes []route

	mu      sync.RWMutex // guards closed and routes after Start
	closed  bool
	started bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	resMu   sync.Mutex
	results []DeliveryResult
}

// NewDispatcher creates a dispatcher delivering to channels at any severity
func NewDispatcher(cfg DispatcherConfig, channels ...Channel) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.HistorySize < 1 {
		cfg.HistorySize = 1
	}
	d := &Dispatcher{
		cfg:   cfg,
		log:   logger.Component("alert_dispatcher"),
		queue: make(chan alert.Alert, cfg.QueueSize),
	}
	for _, ch := range channels {
		d.Register(ch, alert.SeverityInfo)
	}
	return d
}

// Register adds a channel that only receives alerts at or above minSeverity
func (d *Dispatcher) Register(ch Channel, minSeverity alert.Severity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes = append(d.routes, route{channel: ch, minSeverity: minSeverity})
	d.log.Infow("Alert channel registered", "channel", ch.Name(), "min_severity", minSeverity.String())
}

// Attach subscribes the dispatcher to new alerts from m
func (d *Dispatcher) Attach(m *Manager, f Filter) func() {
	return m.Subscribe(func(a alert.Alert) {
		_ = d.Enqueue(a)
	}, f)
}

// Enqueue queues a for delivery, dropping it when the queue is full
func (d *Dispatcher) Enqueue(a alert.Alert) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errors.Wrap(errors.ErrUnavailable, "dispatcher stopped")
	}

	select {
	case d.queue <- a:
		return nil
	default:
		metrics.DispatchDropped.Inc()
		d.log.Warnw("Alert dropped, dispatch queue full",
			"alert_id", a.ID,
			"symbol", a.Symbol,
			"queue_size", d.cfg.QueueSize,
		)
		return errors.Wrapf(errors.ErrQueueFull, "alert %s", a.ID)
	}
}

// QueueDepth returns the number of alerts waiting for delivery
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// Start launches the delivery workers
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.run(ctx, i)
	}
	d.log.Infow("Alert dispatcher started", "workers", d.cfg.Workers, "queue_size", d.cfg.QueueSize)
}

func (d *Dispatcher) run(ctx context.Context, id int) {
	defer d.wg.Done()
	for a := range d.queue {
		d.dispatch(ctx, a)
	}
	d.log.Debugw("Dispatch worker exited", "worker", id)
}

// Stop closes the queue and waits for workers to drain it.
// Deliveries still pending when ctx ends are cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.log.Info("Alert dispatcher drained")
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return errors.Wrap(ctx.Err(), "dispatcher drain interrupted")
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, a alert.Alert) {
	d.mu.RLock()
	routes := append([]route(nil), d.routes...)
	d.mu.RUnlock()

	for _, r := range routes {
		if !a.Severity.AtLeast(r.minSeverity) {
			continue
		}
		d.record(d.send(ctx, r.channel, a))
	}
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, a alert.Alert) (res DeliveryResult) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.DeliveryTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Failed(ch.Name(), a, 1, errors.Newf("channel panicked: %v", r))
		}
		res.Channel = ch.Name()
		res.AlertID = a.ID
		res.Latency = time.Since(start)
		if res.Success && res.DeliveredAt.IsZero() {
			res.DeliveredAt = time.Now()
		}
		metrics.RecordDelivery(res.Channel, res.Latency, res.Err)
	}()

	return ch.Send(ctx, a)
}

func (d *Dispatcher) record(res DeliveryResult) {
	if res.Success {
		d.log.Debugw("Alert delivered",
			"channel", res.Channel,
			"alert_id", res.AlertID,
			"attempts", res.Attempts,
			"latency", res.Latency,
		)
	} else {
		d.log.Warnw("Alert delivery failed",
			"channel", res.Channel,
			"alert_id", res.AlertID,
			"attempts", res.Attempts,
			"error", res.Err,
		)
	}

	d.resMu.Lock()
	d.results = append(d.results, res)
	if over := len(d.results) - d.cfg.HistorySize; over > 0 {
		d.results = append(d.results[:0:0], d.results[over:]...)
	}
	d.resMu.Unlock()
}

// Results returns recent delivery results, oldest first
func (d *Dispatcher) Results() []DeliveryResult {
	d.resMu.Lock()
	defer d.resMu.Unlock()
	return append([]DeliveryResult(nil), d.results...)
}
