package catalog

import (
	"strings"
	"time"
)

// Kind selects which catalog a repository call operates on.
type Kind string

const (
	// KindService is the billable treatment catalog.
	KindService Kind = "service"
	// KindMedication is the prescribable medication catalog.
	KindMedication Kind = "medication"
)

func (k Kind) table() string {
	if k == KindMedication {
		return "medications"
	}
	return "services"
}

// Item is a catalog entry with a default price. Items are never hard-deleted
// while referenced by a visit; they are toggled inactive instead.
type Item struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	DefaultPriceCents int64     `json:"default_price_cents"`
	Active            bool      `json:"active"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UpsertItemRequest carries the mutable fields for create and update.
type UpsertItemRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	DefaultPriceCents int64  `json:"default_price_cents"`
	Active            *bool  `json:"active,omitempty"`
}

// Validate validates the catalog payload
func (r *UpsertItemRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if r.DefaultPriceCents < 0 {
		return ErrNegativePrice
	}
	return nil
}

func (r *UpsertItemRequest) active() bool {
	if r.Active == nil {
		return true
	}
	return *r.Active
}
