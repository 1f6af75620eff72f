package billing

import "context"

// Repository defines the interface for billing aggregates
type Repository interface {
	// Debtors returns every patient whose visits sum to a positive due
	// amount, largest debt first.
	Debtors(ctx context.Context) ([]*Debtor, error)

	// OutstandingCents returns the clinic-wide unpaid total.
	OutstandingCents(ctx context.Context) (int64, error)
}
