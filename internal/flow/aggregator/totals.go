package aggregator

import (
	"github.com/shopspring/decimal"

	"optix/internal/domain/trade"
	"optix/internal/flow/window"
)

// totals are running sums adjusted on insert (sign 1) and eviction (sign -1).
// Decimal arithmetic keeps call + put == total exact across any sequence.
type totals struct {
	total         decimal.Decimal
	callPremium   decimal.Decimal
	putPremium    decimal.Decimal
	signed        decimal.Decimal
	callVolume    int64
	putVolume     int64
	count         int
	institutional int
	byStrike      map[string]StrikeSummary
}

func newTotals() totals {
	return totals{
		total:       decimal.Zero,
		callPremium: decimal.Zero,
		putPremium:  decimal.Zero,
		signed:      decimal.Zero,
		byStrike:    make(map[string]StrikeSummary),
	}
}

func (s *totals) add(t trade.Trade, institutional decimal.Decimal, sign int64) {
	premium := t.Premium.Mul(decimal.NewFromInt(sign))
	size := t.Size * sign

	s.total = s.total.Add(premium)
	if t.OptionType == trade.Call {
		s.callPremium = s.callPremium.Add(premium)
		s.callVolume += size
	} else {
		s.putPremium = s.putPremium.Add(premium)
		s.putVolume += size
	}
	s.signed = s.signed.Add(t.SignedPremium().Mul(decimal.NewFromInt(sign)))
	s.count += int(sign)
	if t.Premium.GreaterThanOrEqual(institutional) {
		s.institutional += int(sign)
	}

	key := t.Strike.String() + "|" + string(t.OptionType)
	k := s.byStrike[key]
	k.Strike = t.Strike.String()
	k.OptionType = t.OptionType
	k.Premium = k.Premium.Add(premium)
	k.Volume += size
	k.Trades += int(sign)
	if k.Trades <= 0 {
		delete(s.byStrike, key)
		return
	}
	s.byStrike[key] = k
}

func (s totals) clone() totals {
	c := s
	c.byStrike = make(map[string]StrikeSummary, len(s.byStrike))
	for k, v := range s.byStrike {
		c.byStrike[k] = v
	}
	return c
}

func (s *totals) summary(symbol string, trades *window.Buffer) Summary {
	total := s.total
	out := Summary{
		Symbol:             symbol,
		TotalPremium:       total,
		CallPremium:        s.callPremium,
		PutPremium:         s.putPremium,
		TotalVolume:        s.callVolume + s.putVolume,
		CallVolume:         s.callVolume,
		PutVolume:          s.putVolume,
		TradeCount:         s.count,
		InstitutionalCount: s.institutional,
		ByStrike:           make(map[string]StrikeSummary, len(s.byStrike)),
	}
	if total.IsPositive() {
		sentiment := s.signed.Div(total).InexactFloat64()
		if sentiment > 1 {
			sentiment = 1
		} else if sentiment < -1 {
			sentiment = -1
		}
		out.Sentiment = sentiment
	}
	if s.callVolume > 0 {
		out.PutCallRatio = float64(s.putVolume) / float64(s.callVolume)
	}
	for k, v := range s.byStrike {
		out.ByStrike[k] = v
	}
	if all := trades.All(); len(all) > 0 {
		out.WindowStart = all[0].Timestamp
		out.WindowEnd = all[len(all)-1].Timestamp
	}
	return out
}
