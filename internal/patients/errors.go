package patients

import "errors"

var (
	// ErrMissingName is returned when the patient name is empty
	ErrMissingName = errors.New("patient name is required")

	// ErrInvalidAge is returned when the age is negative
	ErrInvalidAge = errors.New("age must be zero or positive")

	// ErrInvalidGender is returned when the gender is not a known value
	ErrInvalidGender = errors.New("gender must be male, female or other")

	// ErrPatientNotFound is returned when a patient does not exist
	ErrPatientNotFound = errors.New("patient not found")
)
