package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix/internal/alerts"
	"optix/internal/domain/alert"
	"optix/internal/domain/trade"
	"optix/internal/flow/engine"
)

var start = time.Date(2026, 10, 14, 14, 30, 0, 0, time.UTC)

func newEngine() *engine.Engine {
	clock := func() time.Time { return start }
	return engine.New(engine.DefaultConfig(), engine.Deps{
		Alerts: alerts.NewManager(alerts.DefaultConfig(), alerts.WithClock(clock)),
	})
}

func sweepLeg(i int, venue string) trade.Trade {
	return trade.Trade{
		ID:             fmt.Sprintf("leg-%d", i),
		Symbol:         "AAPL",
		OptionType:     trade.Call,
		Strike:         decimal.NewFromInt(190),
		Expiration:     start.AddDate(0, 0, 21),
		Premium:        decimal.NewFromInt(12_000),
		Size:           40,
		ExecutionPrice: decimal.NewFromInt(3),
		Timestamp:      start.Add(time.Duration(i) * 500 * time.Millisecond),
		Exchange:       venue,
		ExecutionSide:  trade.SideAsk,
		IsAggressive:   true,
	}
}

func input(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	for i, venue := range []string{"CBOE", "PHLX", "ISE", "AMEX"} {
		line, err := json.Marshal(sweepLeg(i, venue))
		require.NoError(t, err)
		b.Write(line)
		b.WriteByte('\n')
	}

	bad := sweepLeg(9, "CBOE")
	bad.Premium = decimal.Zero
	line, err := json.Marshal(bad)
	require.NoError(t, err)
	b.Write(line)
	b.WriteString("\n\n{not json\n")
	return b.String()
}

func decodeLines(t *testing.T, out []byte) []map[string]json.RawMessage {
	t.Helper()
	var lines []map[string]json.RawMessage
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestReplay(t *testing.T) {
	var out bytes.Buffer
	st, err := replay(context.Background(), strings.NewReader(input(t)), &out, newEngine(), alert.SeverityInfo)
	require.NoError(t, err)

	assert.Equal(t, Stats{Lines: 7, Processed: 4, Rejected: 2, Alerts: 1}, st)

	lines := decodeLines(t, out.Bytes())
	require.Len(t, lines, 3, "one alert, one summary, final stats")

	assert.JSONEq(t, `"alert"`, string(lines[0]["kind"]))
	var a alert.Alert
	require.NoError(t, json.Unmarshal(lines[0]["alert"], &a))
	assert.Equal(t, "AAPL", a.Symbol)
	assert.True(t, a.Severity.AtLeast(alert.SeverityHigh))

	assert.JSONEq(t, `"summary"`, string(lines[1]["kind"]))
	assert.JSONEq(t, `"stats"`, string(lines[2]["kind"]))
}

func TestReplay_SeverityFloor(t *testing.T) {
	var out bytes.Buffer
	st, err := replay(context.Background(), strings.NewReader(input(t)), &out, newEngine(), alert.SeverityCritical)
	require.NoError(t, err)

	assert.Zero(t, st.Alerts)
	assert.Len(t, decodeLines(t, out.Bytes()), 2)
}

func TestReplay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := replay(ctx, strings.NewReader(input(t)), &out, newEngine(), alert.SeverityInfo)
	assert.ErrorIs(t, err, context.Canceled)
}
