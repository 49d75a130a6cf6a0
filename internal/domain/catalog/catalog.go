// Package catalog holds the read-only product and combo records the pricing
// engine consumes.
package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is a weighed good sold by the whole unit (pound) with a separately
// priced half unit.
type Product struct {
	ID                int64
	Name              string
	PricePerWholeUnit decimal.Decimal
	PricePerHalfUnit  decimal.Decimal
	AvailableWeight   decimal.Decimal
	MinimumQuantity   int
	Active            bool
}

// Constituent is one product requirement of a combo.
type Constituent struct {
	ProductID int64
	Quantity  int
}

// Combo is a bundle sold at a fixed price regardless of what its constituents
// would cost individually.
type Combo struct {
	ID           int64
	Name         string
	Description  string
	Price        decimal.Decimal
	Active       bool
	Constituents []Constituent
}

// DuplicateIDError is returned by NewSnapshot when two records of the same
// kind share an identifier.
type DuplicateIDError struct {
	Kind string
	ID   int64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s id %d", e.Kind, e.ID)
}

// Source provides the freshest catalog snapshot available to the caller.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}
