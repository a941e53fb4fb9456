package alert

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type is a detection type or a pattern type
type Type string

// State is the alert lifecycle position. Transitions only move forward
type State string

const (
	StateActive       State = "active"
	StateAcknowledged State = "acknowledged"
	StateInactive     State = "inactive"
)

// Alert is a deduplicated, severity-scored notification about flow on one symbol
type Alert struct {
	ID       string         `json:"alert_id"`
	Type     Type           `json:"alert_type"`
	Severity Severity       `json:"severity"`
	Symbol   string         `json:"symbol"`
	Title    string         `json:"title"`
	Details  map[string]any `json:"details,omitempty"`

	State          State      `json:"state"`
	Acknowledged   bool       `json:"acknowledged"`
	Active         bool       `json:"active"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	Premium     decimal.Decimal `json:"premium"`
	Confidence  float64         `json:"confidence"`
	TradeIDs    []string        `json:"trade_ids"`
	Occurrences int             `json:"occurrences"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastEventAt time.Time `json:"last_event_at"` // event time of the newest merged evidence
}

// SetState moves the alert and keeps the derived flags in sync
func (a *Alert) SetState(s State) {
	a.State = s
	a.Active = s != StateInactive
	a.Acknowledged = a.Acknowledged || s == StateAcknowledged
}

// CanTransition reports whether moving from the current state to next is allowed
func (a *Alert) CanTransition(next State) bool {
	switch a.State {
	case StateActive:
		return next == StateAcknowledged || next == StateInactive
	case StateAcknowledged:
		return next == StateInactive
	default:
		return false
	}
}

// Clone returns a deep copy safe to hand to callers outside the manager lock
func (a *Alert) Clone() Alert {
	c := *a
	c.TradeIDs = append([]string(nil), a.TradeIDs...)
	if a.Details != nil {
		c.Details = make(map[string]any, len(a.Details))
		for k, v := range a.Details {
			c.Details[k] = v
		}
	}
	if a.AcknowledgedAt != nil {
		at := *a.AcknowledgedAt
		c.AcknowledgedAt = &at
	}
	return c
}
