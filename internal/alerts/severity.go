package alerts

import (
	"github.com/shopspring/decimal"

	"optix/internal/domain/alert"
	"optix/internal/domain/detection"
)

// Breakpoint grants Severity when both premium and confidence reach their minimums
type Breakpoint struct {
	Severity      alert.Severity
	MinPremium    decimal.Decimal
	MinConfidence float64
}

// SeverityPolicy maps premium and confidence to a severity.
// Every rule is monotone, so more premium or confidence never lowers the result.
type SeverityPolicy struct {
	Breakpoints []Breakpoint
	Floors      map[alert.Type]alert.Severity // minimum severity per alert type
}

// DefaultBreakpoints are the standard premium/confidence tiers
func DefaultBreakpoints() []Breakpoint {
	return []Breakpoint{
		{Severity: alert.SeverityCritical, MinPremium: decimal.NewFromInt(5_000_000), MinConfidence: 0.90},
		{Severity: alert.SeverityHigh, MinPremium: decimal.NewFromInt(1_000_000), MinConfidence: 0.80},
		{Severity: alert.SeverityMedium, MinPremium: decimal.NewFromInt(500_000), MinConfidence: 0.70},
		{Severity: alert.SeverityLow, MinPremium: decimal.NewFromInt(100_000)},
	}
}

// DefaultSeverityPolicy treats sweeps as urgent regardless of size
func DefaultSeverityPolicy() SeverityPolicy {
	return SeverityPolicy{
		Breakpoints: DefaultBreakpoints(),
		Floors: map[alert.Type]alert.Severity{
			alert.Type(detection.TypeSweep):    alert.SeverityHigh,
			alert.Type(detection.TypeDarkPool): alert.SeverityLow,
		},
	}
}

// Classify returns the highest severity whose breakpoint is met, raised to the type floor
func (p SeverityPolicy) Classify(typ alert.Type, premium decimal.Decimal, confidence float64) alert.Severity {
	sev := alert.SeverityInfo
	for _, b := range p.Breakpoints {
		if b.Severity > sev && premium.GreaterThanOrEqual(b.MinPremium) && confidence >= b.MinConfidence {
			sev = b.Severity
		}
	}
	if floor, ok := p.Floors[typ]; ok && floor > sev {
		sev = floor
	}
	return sev
}
