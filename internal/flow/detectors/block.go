package detectors

import (
	"optix/internal/domain/detection"
	"optix/internal/domain/trade"
)

// BlockDetector flags single prints of institutional size
type BlockDetector struct {
	cfg BlockConfig
}

// NewBlockDetector creates a block detector
func NewBlockDetector(cfg BlockConfig) *BlockDetector {
	return &BlockDetector{cfg: cfg}
}

func (d *BlockDetector) Type() detection.Type {
	return detection.TypeBlock
}

// Detect evaluates t against the sizes seen before it, then adds t's size to the sample
func (d *BlockDetector) Detect(t trade.Trade, st *SymbolState) *detection.Detection {
	defer st.Sizes.Add(t.Size)
	return d.Evaluate(t, st.Sizes)
}

// Evaluate checks t against absolute floors and the recent size distribution
func (d *BlockDetector) Evaluate(t trade.Trade, sizes *SizeSample) *detection.Detection {
	if t.Size < d.cfg.MinContracts || t.Premium.LessThan(d.cfg.MinPremium) {
		return nil
	}

	// With too little history there is no baseline; the absolute floors decide alone
	var threshold int64
	gated := sizes != nil && sizes.Len() >= d.cfg.MinSamples
	if gated {
		threshold, _ = sizes.Percentile(d.cfg.SizePercentile)
		if t.Size <= threshold {
			return nil
		}
	}

	sizeRatio := 1.0
	if d.cfg.MinContracts > 0 {
		sizeRatio = float64(t.Size) / float64(d.cfg.MinContracts)
	}
	premiumRatio := 1.0
	if d.cfg.MinPremium.IsPositive() {
		premiumRatio = t.Premium.Div(d.cfg.MinPremium).InexactFloat64()
	}
	sizeScore := excessScore(sizeRatio, d.cfg.SizeSaturation)
	premiumScore := excessScore(premiumRatio, d.cfg.PremiumSaturation)

	confidence := d.cfg.BaseConfidence + d.cfg.SizeWeight*sizeScore + d.cfg.PremiumWeight*premiumScore
	negotiated := t.ExecutionSide == trade.SideMid
	if negotiated {
		confidence += d.cfg.MidPriceBonus
	}

	det := detection.New(detection.TypeBlock, clamp(confidence, 0.01, 1), []trade.Trade{t}, t.Direction())
	det.Metadata["mid_fill"] = negotiated
	det.Metadata["size_score"] = sizeScore
	det.Metadata["premium_score"] = premiumScore
	det.Metadata["percentile_gated"] = gated
	if gated {
		det.Metadata["size_threshold"] = threshold
	}
	return det
}
