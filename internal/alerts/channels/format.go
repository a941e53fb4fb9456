// Package channels implements alert delivery destinations.
package channels

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"optix/internal/domain/alert"
)

var severityIcon = map[alert.Severity]string{
	alert.SeverityInfo:     "⚪",
	alert.SeverityLow:      "🔵",
	alert.SeverityMedium:   "🟡",
	alert.SeverityHigh:     "🟠",
	alert.SeverityCritical: "🔴",
}

// compactUSD renders $1.2M style amounts
func compactUSD(d decimal.Decimal) string {
	v, _ := d.Float64()
	value, prefix := humanize.ComputeSI(v)
	if prefix == "" {
		return "$" + humanize.Comma(d.IntPart())
	}
	return fmt.Sprintf("$%s%s", humanize.FtoaWithDigits(value, 2), strings.ToUpper(prefix))
}

// RenderHTML builds the Telegram body for an alert
func RenderHTML(a alert.Alert, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b> %s\n", severityIcon[a.Severity], a.Severity.String(), html.EscapeString(a.Title))
	fmt.Fprintf(&b, "Symbol: <code>%s</code>\n", html.EscapeString(a.Symbol))
	fmt.Fprintf(&b, "Premium: %s\n", compactUSD(a.Premium))
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", a.Confidence*100)
	fmt.Fprintf(&b, "Trades: %d", len(a.TradeIDs))
	if a.Occurrences > 1 {
		fmt.Fprintf(&b, " (%d updates)", a.Occurrences)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "<i>%s</i>", humanize.RelTime(a.LastEventAt, now, "ago", "from now"))
	return b.String()
}

// detailFields flattens details into sorted key/value pairs for logging
func detailFields(details map[string]any) []interface{} {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]interface{}, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, "detail."+k, details[k])
	}
	return out
}
