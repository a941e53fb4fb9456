package analysis

import (
	"math"
	"time"

	"optix/internal/domain/trade"
)

const yearDuration = 365 * 24 * time.Hour

// Greeks are per-share sensitivities of one option
type Greeks struct {
	Delta float64
	Gamma float64
	Vega  float64 // per 1 vol point
	Theta float64 // per calendar day
}

// EstimateGreeks approximates Black-Scholes Greeks with zero rates. Spot falls
// back to the strike, so a trade without an underlying price is treated as ATM.
func EstimateGreeks(t trade.Trade, cfg DealerConfig) Greeks {
	spot := t.Spot().InexactFloat64()
	strike := t.Strike.InexactFloat64()
	if spot <= 0 || strike <= 0 {
		return Greeks{}
	}

	iv := t.ImpliedVol
	if iv <= 0 {
		iv = cfg.DefaultIV
	}
	if iv <= 0 {
		return Greeks{}
	}

	tte := t.Expiration.Sub(t.Timestamp)
	if tte < cfg.MinTimeToExpiry {
		tte = cfg.MinTimeToExpiry
	}
	years := tte.Hours() / yearDuration.Hours()
	if years <= 0 {
		return Greeks{}
	}

	sqrtT := math.Sqrt(years)
	d1 := (math.Log(spot/strike) + 0.5*iv*iv*years) / (iv * sqrtT)
	pdf := normalPDF(d1)

	g := Greeks{
		Gamma: pdf / (spot * iv * sqrtT),
		Vega:  spot * pdf * sqrtT / 100,
		Theta: -spot * pdf * iv / (2 * sqrtT) / 365,
	}
	if t.OptionType == trade.Put {
		g.Delta = normalCDF(d1) - 1
	} else {
		g.Delta = normalCDF(d1)
	}
	return g
}

func normalPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
