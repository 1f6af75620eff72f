package catalog

import "errors"

var (
	// ErrMissingName is returned when the item name is empty
	ErrMissingName = errors.New("catalog item name is required")

	// ErrNegativePrice is returned when the default price is negative
	ErrNegativePrice = errors.New("default price must be zero or positive")

	// ErrItemNotFound is returned when a catalog item does not exist
	ErrItemNotFound = errors.New("catalog item not found")

	// ErrDuplicateName is returned when an item with the same name exists
	ErrDuplicateName = errors.New("catalog item name already exists")

	// ErrItemInUse is returned when deleting an item referenced by a visit
	ErrItemInUse = errors.New("catalog item is referenced by visits")
)
