package analysis

import (
	"math"

	talib "github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"optix/internal/domain/pattern"
	"optix/internal/domain/trade"
)

// aggressive looks for a sustained run of same-direction aggressive fills
func (a *FlowAnalyzer) aggressive(w *windowView) *pattern.FlowPattern {
	var (
		counts  = map[trade.Direction]int{}
		longest = map[trade.Direction]int{}
		current trade.Direction
		run     int
		total   int
	)
	for _, t := range w.trades {
		dir := t.Direction()
		if !t.IsAggressive || dir == trade.Neutral {
			continue
		}
		total++
		counts[dir]++
		if dir == current {
			run++
		} else {
			current, run = dir, 1
		}
		if run > longest[dir] {
			longest[dir] = run
		}
	}
	if total == 0 || counts[trade.Buy] == counts[trade.Sell] {
		return nil
	}

	dominant := trade.Buy
	if counts[trade.Sell] > counts[trade.Buy] {
		dominant = trade.Sell
	}
	share := float64(counts[dominant]) / float64(total)
	bestRun := longest[dominant]

	var callPrem, putPrem, dominantPrem decimal.Decimal
	var ids []string
	for _, t := range w.trades {
		if t.Direction() != dominant {
			continue
		}
		if t.OptionType == trade.Call {
			callPrem = callPrem.Add(t.Premium)
		} else {
			putPrem = putPrem.Add(t.Premium)
		}
		if t.IsAggressive {
			dominantPrem = dominantPrem.Add(t.Premium)
			ids = append(ids, t.ID)
		}
	}

	typ := pattern.TypeAggressiveBuying
	sentiment := ratio(callPrem.Sub(putPrem), w.total)
	if dominant == trade.Sell {
		typ = pattern.TypeAggressiveSelling
		sentiment = ratio(putPrem.Sub(callPrem), w.total)
	}

	runScore := 1.0
	if a.cfg.MinAggressiveRun > 0 {
		runScore = clamp(float64(bestRun)/float64(2*a.cfg.MinAggressiveRun), 0, 1)
	}

	return &pattern.FlowPattern{
		Type:         typ,
		NetSentiment: clamp(sentiment, -1, 1),
		Significant:  bestRun >= a.cfg.MinAggressiveRun && share >= a.cfg.MinDirectionalShare,
		Score:        share,
		Confidence:   share * (0.5 + 0.5*runScore),
		TotalPremium: dominantPrem,
		TradeCount:   len(ids),
		TradeIDs:     ids,
		Metadata: map[string]any{
			"longest_run":      bestRun,
			"aggressive_fills": total,
			"direction":        string(dominant),
		},
	}
}

// institutional weights large prints by premium share and by how tightly they cluster in time
func (a *FlowAnalyzer) institutional(w *windowView) *pattern.FlowPattern {
	var large []trade.Trade
	for _, t := range w.trades {
		if t.Premium.GreaterThanOrEqual(a.cfg.InstitutionalMinPremium) {
			large = append(large, t)
		}
	}
	if len(large) == 0 || len(large) < a.cfg.InstitutionalMinTrades {
		return nil
	}

	largePrem := trade.Premiums(large)
	clustered := 0
	for i := range large {
		near := (i > 0 && large[i].Timestamp.Sub(large[i-1].Timestamp) <= a.cfg.BurstGap) ||
			(i+1 < len(large) && large[i+1].Timestamp.Sub(large[i].Timestamp) <= a.cfg.BurstGap)
		if near {
			clustered++
		}
	}
	clusterShare := float64(clustered) / float64(len(large))
	premiumShare := ratio(largePrem, w.total)
	score := premiumShare * (0.5 + 0.5*clusterShare)

	signed := decimal.Zero
	for _, t := range large {
		signed = signed.Add(t.SignedPremium())
	}

	return &pattern.FlowPattern{
		Type:         pattern.TypeInstitutional,
		NetSentiment: clamp(ratio(signed, largePrem), -1, 1),
		Significant:  score >= a.cfg.InstitutionalMinScore,
		Score:        score,
		Confidence:   clamp(score, 0, 1),
		TotalPremium: largePrem,
		TradeCount:   len(large),
		TradeIDs:     trade.IDs(large),
		Metadata: map[string]any{
			"premium_share": premiumShare,
			"cluster_share": clusterShare,
		},
	}
}

// spread finds near-simultaneous same-side prints across distinct contract legs
func (a *FlowAnalyzer) spread(w *windowView) *pattern.FlowPattern {
	var (
		spreadTrades []trade.Trade
		clusters     int
		maxLegs      int
	)
	flush := func(group []trade.Trade) {
		bySide := map[trade.Side][]trade.Trade{}
		for _, t := range group {
			if t.ExecutionSide == trade.SideMid {
				continue
			}
			bySide[t.ExecutionSide] = append(bySide[t.ExecutionSide], t)
		}
		for _, side := range []trade.Side{trade.SideBid, trade.SideAsk} {
			legs := map[string]struct{}{}
			for _, t := range bySide[side] {
				legs[t.LegKey()] = struct{}{}
			}
			if len(legs) < a.cfg.SpreadMinLegs || len(legs) < 2 {
				continue
			}
			clusters++
			if len(legs) > maxLegs {
				maxLegs = len(legs)
			}
			spreadTrades = append(spreadTrades, bySide[side]...)
		}
	}

	start := 0
	for i := 1; i <= len(w.trades); i++ {
		if i < len(w.trades) && w.trades[i].Timestamp.Sub(w.trades[i-1].Timestamp) <= a.cfg.SpreadMaxGap {
			continue
		}
		if i-start >= 2 {
			flush(w.trades[start:i])
		}
		start = i
	}
	if clusters == 0 {
		return nil
	}

	spreadPrem := trade.Premiums(spreadTrades)
	signed := decimal.Zero
	for _, t := range spreadTrades {
		signed = signed.Add(t.SignedPremium())
	}
	share := ratio(spreadPrem, w.total)

	return &pattern.FlowPattern{
		Type:         pattern.TypeSpread,
		NetSentiment: clamp(ratio(signed, spreadPrem), -1, 1),
		Significant:  share >= a.cfg.SpreadMinShare,
		Score:        share,
		Confidence:   clamp(share, 0, 1),
		TotalPremium: spreadPrem,
		TradeCount:   len(spreadTrades),
		TradeIDs:     trade.IDs(spreadTrades),
		Metadata: map[string]any{
			"clusters": clusters,
			"max_legs": maxLegs,
		},
	}
}

// unusualVolume compares the newest volume bucket against the earlier buckets of the window
func (a *FlowAnalyzer) unusualVolume(w *windowView) *pattern.FlowPattern {
	if a.cfg.VolumeBucket <= 0 {
		return nil
	}
	newest := w.end()
	n := int(w.end().Sub(w.start())/a.cfg.VolumeBucket) + 1
	if n-1 < a.cfg.MinBuckets || n-1 < 2 {
		return nil
	}

	// index 0 is the newest bucket
	buckets := make([]float64, n)
	var latest []trade.Trade
	for _, t := range w.trades {
		idx := int(newest.Sub(t.Timestamp) / a.cfg.VolumeBucket)
		if idx >= n {
			continue
		}
		buckets[idx] += float64(t.Size)
		if idx == 0 {
			latest = append(latest, t)
		}
	}

	history := make([]float64, 0, n-1)
	for i := n - 1; i >= 1; i-- {
		history = append(history, buckets[i])
	}
	period := len(history)
	mean := last(talib.Sma(history, period))
	std := last(talib.StdDev(history, period, 1))
	if math.IsNaN(std) || std < 1e-9 {
		return nil
	}
	z := (buckets[0] - mean) / std

	signed := decimal.Zero
	for _, t := range latest {
		signed = signed.Add(t.SignedPremium())
	}
	latestPrem := trade.Premiums(latest)

	conf := 0.0
	if a.cfg.VolumeZScore > 0 {
		conf = clamp(z/(2*a.cfg.VolumeZScore), 0, 1)
	}
	return &pattern.FlowPattern{
		Type:         pattern.TypeUnusualVolume,
		NetSentiment: clamp(ratio(signed, latestPrem), -1, 1),
		Significant:  z >= a.cfg.VolumeZScore,
		Score:        z,
		Confidence:   conf,
		TotalPremium: latestPrem,
		TradeCount:   len(latest),
		TradeIDs:     trade.IDs(latest),
		Metadata: map[string]any{
			"bucket_volume": buckets[0],
			"mean_volume":   mean,
			"stddev_volume": std,
			"buckets":       period,
		},
	}
}

func last(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[len(v)-1]
}
