package detectors

import (
	"strings"

	"optix/internal/domain/detection"
	"optix/internal/domain/trade"
)

// DarkPoolDetector flags prints from off-exchange venues or reported late
type DarkPoolDetector struct {
	cfg    DarkPoolConfig
	venues map[string]struct{}
}

// NewDarkPoolDetector creates a dark pool detector
func NewDarkPoolDetector(cfg DarkPoolConfig) *DarkPoolDetector {
	venues := make(map[string]struct{}, len(cfg.Venues))
	for _, v := range cfg.Venues {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			venues[v] = struct{}{}
		}
	}
	return &DarkPoolDetector{cfg: cfg, venues: venues}
}

func (d *DarkPoolDetector) Type() detection.Type {
	return detection.TypeDarkPool
}

// IsDarkVenue reports whether exchange is on the venue allowlist
func (d *DarkPoolDetector) IsDarkVenue(exchange string) bool {
	_, ok := d.venues[strings.ToUpper(strings.TrimSpace(exchange))]
	return ok
}

// Detect records off-exchange volume for context and evaluates t
func (d *DarkPoolDetector) Detect(t trade.Trade, st *SymbolState) *detection.Detection {
	venue := d.IsDarkVenue(t.Exchange)
	delayed := t.DelayedBy() > d.cfg.DelayedPrintThreshold
	if !venue && !delayed {
		return nil
	}
	st.DarkPool.Add(t, d.cfg.VolumeWindow)

	if t.Size < d.cfg.MinContracts || t.Premium.LessThan(d.cfg.MinPremium) {
		return nil
	}

	var confidence float64
	switch {
	case venue && delayed:
		confidence = d.cfg.VenueConfidence + d.cfg.BothBonus
	case venue:
		confidence = d.cfg.VenueConfidence
	default:
		confidence = d.cfg.DelayConfidence
	}
	if d.cfg.MinPremium.IsPositive() {
		ratio := t.Premium.Div(d.cfg.MinPremium).InexactFloat64()
		confidence += d.cfg.SizeBonus * excessScore(ratio, d.cfg.SizeSaturation)
	}

	contracts, premium, prints := st.DarkPool.Totals()
	det := detection.New(detection.TypeDarkPool, clamp(confidence, 0.01, 1), []trade.Trade{t}, t.Direction())
	det.Metadata["venue_match"] = venue
	det.Metadata["delayed"] = delayed
	det.Metadata["delay_seconds"] = t.DelayedBy().Seconds()
	det.Metadata["rolling_contracts"] = contracts
	det.Metadata["rolling_premium"] = premium.String()
	det.Metadata["rolling_prints"] = prints
	return det
}
