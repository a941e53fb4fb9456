// Package alerts turns detections and patterns into deduplicated, severity-scored
// alerts with a forward-only lifecycle, and fans them out to delivery channels.
package alerts

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"optix/internal/domain/alert"
	"optix/internal/domain/detection"
	"optix/internal/domain/pattern"
	"optix/internal/metrics"
	"optix/pkg/errors"
	"optix/pkg/logger"
)

// Config controls dedup and retention
type Config struct {
	DedupWindow time.Duration `envconfig:"DEDUP_WINDOW" default:"5m"`
	ActiveTTL   time.Duration `envconfig:"ACTIVE_TTL" default:"1h"`
	Retention   time.Duration `envconfig:"RETENTION" default:"24h"`
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		DedupWindow: 5 * time.Minute,
		ActiveTTL:   time.Hour,
		Retention:   24 * time.Hour,
	}
}

// Contribution is one trade's share of the evidence behind an alert
type Contribution struct {
	TradeID string
	Premium decimal.Decimal
}

// Candidate is the input to Create
type Candidate struct {
	Type          alert.Type
	Symbol        string
	Confidence    float64
	Contributions []Contribution  // per-trade evidence, unioned on merge
	Premium       decimal.Decimal // used when there are no contributions
	TradeIDs      []string
	EventAt       time.Time
	Details       map[string]any
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides wall time used for CreatedAt/UpdatedAt and TTL checks
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithPolicy overrides the severity policy
func WithPolicy(p SeverityPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// Manager owns every alert. Safe for concurrent use
type Manager struct {
	cfg    Config
	policy SeverityPolicy
	now    func() time.Time
	log    *logger.Logger

	mu     sync.RWMutex
	alerts map[string]*alert.Alert
	open   map[string]string // symbol|type -> id of the alert accepting merges
	seen   map[string]map[string]struct{}

	subMu  sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
}

// NewManager creates an alert manager
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		policy: DefaultSeverityPolicy(),
		now:    time.Now,
		log:    logger.Component("alert_manager"),
		alerts: make(map[string]*alert.Alert),
		open:   make(map[string]string),
		seen:   make(map[string]map[string]struct{}),
		subs:   make(map[uint64]*subscription),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Policy returns the severity policy in use
func (m *Manager) Policy() SeverityPolicy {
	return m.policy
}

// CreateFromDetection routes a detector hit through Create
func (m *Manager) CreateFromDetection(d *detection.Detection) (alert.Alert, bool) {
	contribs := make([]Contribution, 0, len(d.Trades))
	for _, t := range d.Trades {
		contribs = append(contribs, Contribution{TradeID: t.ID, Premium: t.Premium})
	}
	details := map[string]any{
		"direction":  string(d.Direction),
		"total_size": d.TotalSize,
		"legs":       len(d.Trades),
	}
	for k, v := range d.Metadata {
		details[k] = v
	}
	return m.Create(Candidate{
		Type:          alert.Type(d.Type),
		Symbol:        d.Symbol,
		Confidence:    d.Confidence,
		Contributions: contribs,
		EventAt:       d.DetectedAt,
		Details:       details,
	})
}

// CreateFromPattern routes a significant flow pattern through Create
func (m *Manager) CreateFromPattern(p pattern.FlowPattern) (alert.Alert, bool) {
	details := map[string]any{
		"net_sentiment": p.NetSentiment,
		"score":         p.Score,
		"trade_count":   p.TradeCount,
		"window_start":  p.WindowStart,
		"window_end":    p.WindowEnd,
	}
	for k, v := range p.Metadata {
		details[k] = v
	}
	return m.Create(Candidate{
		Type:       alert.Type(p.Type),
		Symbol:     p.Symbol,
		Confidence: p.Confidence,
		Premium:    p.TotalPremium,
		TradeIDs:   p.TradeIDs,
		EventAt:    p.WindowEnd,
		Details:    details,
	})
}

// Create inserts a new alert or merges c into the open alert for the same
// symbol and type when it falls inside the dedup window. created is false on merge.
// Subscribers are notified of new alerts only, after the lock is released.
func (m *Manager) Create(c Candidate) (alert.Alert, bool) {
	c.Symbol = strings.ToUpper(c.Symbol)
	now := m.now()
	if c.EventAt.IsZero() {
		c.EventAt = now
	}

	m.mu.Lock()
	if existing := m.mergeTarget(c); existing != nil {
		m.merge(existing, c, now)
		out := existing.Clone()
		m.mu.Unlock()

		metrics.RecordAlert(string(out.Type), out.Severity.String(), false)
		m.log.Debugw("Alert merged",
			"alert_id", out.ID,
			"symbol", out.Symbol,
			"type", out.Type,
			"occurrences", out.Occurrences,
		)
		return out, false
	}

	a := &alert.Alert{
		ID:          uuid.NewString(),
		Type:        c.Type,
		Symbol:      c.Symbol,
		Details:     c.Details,
		Confidence:  c.Confidence,
		Premium:     decimal.Zero,
		Occurrences: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastEventAt: c.EventAt,
	}
	a.SetState(alert.StateActive)
	m.seen[a.ID] = make(map[string]struct{})
	m.absorb(a, c)
	a.Severity = m.policy.Classify(a.Type, a.Premium, a.Confidence)
	a.Title = title(a)

	m.alerts[a.ID] = a
	m.open[dedupKey(a.Symbol, a.Type)] = a.ID
	out := a.Clone()
	m.mu.Unlock()

	metrics.RecordAlert(string(out.Type), out.Severity.String(), true)
	m.log.Infow("Alert created",
		"alert_id", out.ID,
		"symbol", out.Symbol,
		"type", out.Type,
		"severity", out.Severity.String(),
		"premium", out.Premium.String(),
		"confidence", out.Confidence,
	)
	m.notify(out)
	return out, true
}

func dedupKey(symbol string, typ alert.Type) string {
	return symbol + "|" + string(typ)
}

func (m *Manager) mergeTarget(c Candidate) *alert.Alert {
	id, ok := m.open[dedupKey(c.Symbol, c.Type)]
	if !ok {
		return nil
	}
	a := m.alerts[id]
	if a == nil || a.State != alert.StateActive {
		return nil
	}
	gap := c.EventAt.Sub(a.LastEventAt)
	if gap < 0 {
		gap = -gap
	}
	if gap > m.cfg.DedupWindow {
		return nil
	}
	return a
}

// absorb unions evidence from c into a
func (m *Manager) absorb(a *alert.Alert, c Candidate) {
	seen := m.seen[a.ID]
	for _, ctr := range c.Contributions {
		if _, dup := seen[ctr.TradeID]; dup {
			continue
		}
		seen[ctr.TradeID] = struct{}{}
		a.TradeIDs = append(a.TradeIDs, ctr.TradeID)
		a.Premium = a.Premium.Add(ctr.Premium)
	}
	for _, id := range c.TradeIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		a.TradeIDs = append(a.TradeIDs, id)
	}
	// pattern evidence is a window total, not per-trade
	if len(c.Contributions) == 0 && c.Premium.GreaterThan(a.Premium) {
		a.Premium = c.Premium
	}
}

func (m *Manager) merge(a *alert.Alert, c Candidate, now time.Time) {
	m.absorb(a, c)
	if c.Confidence > a.Confidence {
		a.Confidence = c.Confidence
	}
	for k, v := range c.Details {
		if a.Details == nil {
			a.Details = map[string]any{}
		}
		a.Details[k] = v
	}
	if c.EventAt.After(a.LastEventAt) {
		a.LastEventAt = c.EventAt
	}
	a.Occurrences++
	a.UpdatedAt = now

	// merged evidence can only escalate
	if sev := m.policy.Classify(a.Type, a.Premium, a.Confidence); sev > a.Severity {
		a.Severity = sev
	}
	a.Title = title(a)
}

// Acknowledge marks an active alert as seen. Repeating it is a no-op
func (m *Manager) Acknowledge(id, by string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "alert %s", id)
	}
	switch a.State {
	case alert.StateAcknowledged:
		return nil
	case alert.StateInactive:
		return errors.Wrapf(errors.ErrInvalidTransition, "alert %s is inactive", id)
	}

	now := m.now()
	a.SetState(alert.StateAcknowledged)
	a.AcknowledgedBy = by
	a.AcknowledgedAt = &now
	a.UpdatedAt = now
	m.closeKey(a)
	metrics.AlertTransitions.WithLabelValues(string(alert.StateAcknowledged)).Inc()
	return nil
}

// Deactivate retires an alert. Repeating it is a no-op
func (m *Manager) Deactivate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "alert %s", id)
	}
	if a.State == alert.StateInactive {
		return nil
	}
	m.deactivate(a, m.now())
	return nil
}

func (m *Manager) deactivate(a *alert.Alert, now time.Time) {
	a.SetState(alert.StateInactive)
	a.UpdatedAt = now
	m.closeKey(a)
	metrics.AlertTransitions.WithLabelValues(string(alert.StateInactive)).Inc()
}

func (m *Manager) closeKey(a *alert.Alert) {
	key := dedupKey(a.Symbol, a.Type)
	if m.open[key] == a.ID {
		delete(m.open, key)
	}
}

// Get returns a copy of one alert
func (m *Manager) Get(id string) (alert.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.alerts[id]
	if !ok {
		return alert.Alert{}, errors.Wrapf(errors.ErrNotFound, "alert %s", id)
	}
	return a.Clone(), nil
}

// Query returns matching alerts newest first
func (m *Manager) Query(f Filter) []alert.Alert {
	m.mu.RLock()
	out := make([]alert.Alert, 0)
	for _, a := range m.alerts {
		if f.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Counts returns the number of alerts per state
func (m *Manager) Counts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[string]int{
		string(alert.StateActive):       0,
		string(alert.StateAcknowledged): 0,
		string(alert.StateInactive):     0,
	}
	for _, a := range m.alerts {
		counts[string(a.State)]++
	}
	return counts
}

// ExpireStale deactivates alerts not updated within ActiveTTL of now
func (m *Manager) ExpireStale(now time.Time) int {
	if m.cfg.ActiveTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.cfg.ActiveTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.alerts {
		if a.State != alert.StateInactive && a.UpdatedAt.Before(cutoff) {
			m.deactivate(a, now)
			n++
		}
	}
	return n
}

// Prune deletes inactive alerts older than Retention
func (m *Manager) Prune(now time.Time) int {
	if m.cfg.Retention <= 0 {
		return 0
	}
	cutoff := now.Add(-m.cfg.Retention)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, a := range m.alerts {
		if a.State == alert.StateInactive && a.UpdatedAt.Before(cutoff) {
			delete(m.alerts, id)
			delete(m.seen, id)
			n++
		}
	}
	return n
}

// Subscribe registers fn for new alerts matching f. The returned func removes it
func (m *Manager) Subscribe(fn Subscriber, f Filter) func() {
	m.subMu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[id] = &subscription{id: id, fn: fn, filter: f}
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

func (m *Manager) notify(a alert.Alert) {
	m.subMu.RLock()
	targets := make([]*subscription, 0, len(m.subs))
	for _, s := range m.subs {
		if s.filter.Matches(&a) {
			targets = append(targets, s)
		}
	}
	m.subMu.RUnlock()

	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })
	for _, s := range targets {
		m.deliver(s, a)
	}
}

func (m *Manager) deliver(s *subscription, a alert.Alert) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorw("Alert subscriber panicked",
				"subscriber", s.id,
				"alert_id", a.ID,
				"panic", r,
			)
		}
	}()
	s.fn(a.Clone())
}

func title(a *alert.Alert) string {
	amount := "$" + humanize.Comma(a.Premium.IntPart())
	switch a.Type {
	case alert.Type(detection.TypeSweep):
		return fmt.Sprintf("%s sweep: %s across %d legs", a.Symbol, amount, len(a.TradeIDs))
	case alert.Type(detection.TypeBlock):
		return fmt.Sprintf("%s block trade: %s", a.Symbol, amount)
	case alert.Type(detection.TypeDarkPool):
		return fmt.Sprintf("%s dark pool print: %s", a.Symbol, amount)
	default:
		name := strings.ReplaceAll(string(a.Type), "_", " ")
		return fmt.Sprintf("%s %s: %s over %d trades", a.Symbol, name, amount, len(a.TradeIDs))
	}
}
