package reports

import (
	"context"
	"time"
)

// Repository defines the interface for the reporting aggregates. Every
// method is read-only.
type Repository interface {
	Demographics(ctx context.Context) (*Demographics, error)
	VisitFrequency(ctx context.Context) ([]*VisitFrequencyRow, error)
	InactivePatients(ctx context.Context, cutoffDays int) ([]*InactivePatientRow, error)
	SingleVisitPatients(ctx context.Context) ([]*SingleVisitPatientRow, error)
	ServiceUtilization(ctx context.Context) ([]*UtilizationRow, error)
	MedicationUtilization(ctx context.Context) ([]*UtilizationRow, error)
	ServiceTrends(ctx context.Context, p Period) ([]*TrendRow, error)
	MedicationTrends(ctx context.Context, p Period) ([]*TrendRow, error)
	Revenue(ctx context.Context, p Period) ([]*RevenueRow, error)
	VisitTrends(ctx context.Context, p Period, start, end time.Time) ([]*VisitTrendRow, error)
	ToothAnalysis(ctx context.Context) ([]*ToothRow, error)
	PriceDeviation(ctx context.Context) ([]*PriceDeviationRow, error)
	ClinicLoad(ctx context.Context) (*ClinicLoad, error)
	DataQuality(ctx context.Context) (*DataQuality, error)
}
