package detection

import "context"

// Repository stores detection history for offline analysis
type Repository interface {
	InsertDetections(ctx context.Context, detections []Detection) error
}
