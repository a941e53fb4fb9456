// Package detectors classifies individual prints as sweeps, blocks or dark-pool executions.
package detectors

import (
	"optix/internal/domain/detection"
	"optix/internal/domain/trade"
)

// Detector inspects one incoming trade against the symbol's state and returns
// at most one detection. Implementations update the part of state they own.
type Detector interface {
	Type() detection.Type
	Detect(t trade.Trade, st *SymbolState) *detection.Detection
}

// Set is the fixed detector lineup run for every trade
type Set struct {
	Sweep    *SweepDetector
	Block    *BlockDetector
	DarkPool *DarkPoolDetector
}

// NewSet builds all three detectors
func NewSet(sweep SweepConfig, block BlockConfig, dark DarkPoolConfig) *Set {
	return &Set{
		Sweep:    NewSweepDetector(sweep),
		Block:    NewBlockDetector(block),
		DarkPool: NewDarkPoolDetector(dark),
	}
}

// All returns the detectors in evaluation order
func (s *Set) All() []Detector {
	return []Detector{s.Sweep, s.Block, s.DarkPool}
}

// NewState allocates per-symbol state matching this set's configuration
func (s *Set) NewState(symbol string) *SymbolState {
	return NewSymbolState(symbol, s.Sweep.cfg, s.Block.cfg)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// excessScore maps ratio = value/threshold to 0 at 1x and 1 at saturation
func excessScore(ratio, saturation float64) float64 {
	if saturation <= 1 {
		if ratio >= 1 {
			return 1
		}
		return 0
	}
	return clamp((ratio-1)/(saturation-1), 0, 1)
}
