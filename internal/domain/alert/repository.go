package alert

import "context"

// Repository stores alert snapshots for history queries outside the process
type Repository interface {
	InsertAlerts(ctx context.Context, alerts []Alert) error
}
