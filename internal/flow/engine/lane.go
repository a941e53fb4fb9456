package engine

import (
	"sync"
	"time"

	"optix/internal/domain/dealer"
	"optix/internal/domain/pattern"
	"optix/internal/domain/trade"
	"optix/internal/flow/detectors"
	"optix/internal/flow/window"
)

// lane is the processing state for one symbol. mu serializes ProcessTrade for
// the symbol; readers use the narrower locks so queries never wait on detectors.
type lane struct {
	symbol string
	mu     sync.Mutex

	state *detectors.SymbolState
	ids   *idRing

	sinceEval  int
	lastEvalAt time.Time

	histMu  sync.RWMutex
	history *window.Buffer

	resMu    sync.RWMutex
	patterns []pattern.FlowPattern
	position dealer.Position
	hasPos   bool
}

func newLane(symbol string, state *detectors.SymbolState, recentIDs int) *lane {
	return &lane{
		symbol:   symbol,
		state:    state,
		ids:      newIDRing(recentIDs),
		history:  window.NewBuffer(256),
		position: dealer.Neutral(symbol),
	}
}

func (l *lane) record(t trade.Trade, keep time.Duration, max int) {
	l.histMu.Lock()
	defer l.histMu.Unlock()
	l.history.Add(t)
	if keep > 0 {
		l.history.PruneBefore(l.history.Newest().Add(-keep))
	}
	l.history.TrimTo(max)
}

// trades returns a copy of the history, optionally limited to lookback before the newest trade
func (l *lane) trades(lookback time.Duration) []trade.Trade {
	l.histMu.RLock()
	defer l.histMu.RUnlock()
	if lookback <= 0 {
		return l.history.All()
	}
	newest := l.history.Newest()
	return l.history.Between(newest.Add(-lookback), newest)
}

func (l *lane) publish(patterns []pattern.FlowPattern, pos dealer.Position) {
	l.resMu.Lock()
	l.patterns = patterns
	l.position = pos
	l.hasPos = true
	l.resMu.Unlock()
}

func (l *lane) latest() ([]pattern.FlowPattern, dealer.Position, bool) {
	l.resMu.RLock()
	defer l.resMu.RUnlock()
	return append([]pattern.FlowPattern(nil), l.patterns...), l.position, l.hasPos
}

// idRing remembers the last n trade ids
type idRing struct {
	ids  []string
	next int
	set  map[string]struct{}
}

func newIDRing(n int) *idRing {
	if n < 1 {
		n = 1
	}
	return &idRing{ids: make([]string, 0, n), set: make(map[string]struct{}, n)}
}

func (r *idRing) Has(id string) bool {
	_, ok := r.set[id]
	return ok
}

func (r *idRing) Add(id string) {
	if len(r.ids) < cap(r.ids) {
		r.ids = append(r.ids, id)
	} else {
		delete(r.set, r.ids[r.next])
		r.ids[r.next] = id
		r.next = (r.next + 1) % len(r.ids)
	}
	r.set[id] = struct{}{}
}
