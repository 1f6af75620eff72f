package dashboard

import "context"

// Repository defines the interface for dashboard KPI queries
type Repository interface {
	Summary(ctx context.Context) (*Summary, error)
}
