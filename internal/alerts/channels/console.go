package channels

import (
	"context"

	"optix/internal/alerts"
	"optix/internal/domain/alert"
	"optix/pkg/logger"
)

// Console writes alerts to the structured log
type Console struct {
	log *logger.Logger
}

// NewConsole creates a console channel
func NewConsole() *Console {
	return &Console{log: logger.Component("alert_console")}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Send(_ context.Context, a alert.Alert) alerts.DeliveryResult {
	fields := []interface{}{
		"alert_id", a.ID,
		"type", a.Type,
		"severity", a.Severity.String(),
		"symbol", a.Symbol,
		"premium", compactUSD(a.Premium),
		"confidence", a.Confidence,
		"trades", len(a.TradeIDs),
	}
	fields = append(fields, detailFields(a.Details)...)
	c.log.Infow(a.Title, fields...)
	return alerts.Delivered(c.Name(), a, 1)
}
