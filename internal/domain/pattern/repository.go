package pattern

import "context"

// Repository stores analysis passes
type Repository interface {
	InsertPatterns(ctx context.Context, patterns []FlowPattern) error
}
