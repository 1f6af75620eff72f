package visits

import "errors"

var (
	// ErrVisitNotFound is returned when a visit does not exist
	ErrVisitNotFound = errors.New("visit not found")

	// ErrPatientNotFound is returned when the visit's patient does not exist
	ErrPatientNotFound = errors.New("patient not found")

	// ErrLineNotFound is returned when a line item does not exist on the visit
	ErrLineNotFound = errors.New("visit line item not found")

	// ErrUnknownCatalogItem is returned when the referenced service or
	// medication does not exist
	ErrUnknownCatalogItem = errors.New("unknown catalog item")

	// ErrInvalidToothNumber is returned when the tooth number is outside 1..32
	ErrInvalidToothNumber = errors.New("tooth number must be between 1 and 32")

	// ErrInvalidQuantity is returned when the prescription quantity is not positive
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrNegativePrice is returned when a line price is negative
	ErrNegativePrice = errors.New("price must be zero or positive")

	// ErrNegativePayment is returned when the paid amount is negative
	ErrNegativePayment = errors.New("paid amount must be zero or positive")

	// ErrInvalidDate is returned when the visit date does not parse as YYYY-MM-DD
	ErrInvalidDate = errors.New("visit date must be YYYY-MM-DD")
)
