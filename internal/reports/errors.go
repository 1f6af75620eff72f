package reports

import "errors"

var (
	// ErrInvalidPeriod is returned when the period parameter is not
	// day, week, or month
	ErrInvalidPeriod = errors.New("period must be day, week, or month")

	// ErrInvalidRange is returned when start/end do not parse as
	// YYYY-MM-DD or end precedes start
	ErrInvalidRange = errors.New("start and end must be YYYY-MM-DD with start <= end")

	// ErrInvalidCutoff is returned when the days parameter is not a
	// positive integer
	ErrInvalidCutoff = errors.New("days must be a positive integer")
)
