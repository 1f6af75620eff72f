package backup

import "errors"

var (
	// ErrSnapshotNotFound is returned when no snapshot matches the given id
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrNotConfigured is returned when the service is missing its
	// database or backup directory
	ErrNotConfigured = errors.New("backup service not configured")
)
