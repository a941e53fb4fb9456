package alerts

import (
	"strings"
	"time"

	"optix/internal/domain/alert"
)

// Filter selects alerts for queries and subscriptions. Zero fields match everything
type Filter struct {
	Type               alert.Type
	Symbol             string
	MinSeverity        alert.Severity
	IncludeInactive    bool
	OnlyUnacknowledged bool
	Since              time.Time
	Limit              int
}

// Matches reports whether a passes the filter
func (f Filter) Matches(a *alert.Alert) bool {
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Symbol != "" && !strings.EqualFold(a.Symbol, f.Symbol) {
		return false
	}
	if a.Severity < f.MinSeverity {
		return false
	}
	if !f.IncludeInactive && a.State == alert.StateInactive {
		return false
	}
	if f.OnlyUnacknowledged && a.Acknowledged {
		return false
	}
	if !f.Since.IsZero() && a.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// Subscriber receives newly created alerts synchronously
type Subscriber func(alert.Alert)

type subscription struct {
	id     uint64
	fn     Subscriber
	filter Filter
}
