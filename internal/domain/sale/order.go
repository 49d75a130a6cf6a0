package sale

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/counter-pos/internal/domain/catalog"
)

// Order is a submission-ready sale.
type Order struct {
	// Reference is the caller-supplied identifier of this submission attempt.
	Reference uuid.UUID
	SaleType  string
	Detail    string
	Products  []ProductItem
	Combos    []ComboItem
}

// ProductItem is a normalized product line.
type ProductItem struct {
	ProductID int64
	Quantity  decimal.Decimal
	Subtotal  decimal.Decimal
}

// ComboItem is a normalized combo line. Subtotal is kept for the local
// receipt; the ledger payload carries only the id and quantity.
type ComboItem struct {
	ComboID  int64
	Quantity int64
	Subtotal decimal.Decimal
}

// Total is the sum implied by the order lines.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Products {
		total = total.Add(p.Subtotal)
	}
	for _, c := range o.Combos {
		total = total.Add(c.Subtotal)
	}
	return total
}

// Receipt is the outcome of an accepted submission.
type Receipt struct {
	Reference uuid.UUID
	SaleID    string
	Message   string
	Total     decimal.Decimal
}

// Gateway delivers an order to the authoritative ledger service.
type Gateway interface {
	Submit(ctx context.Context, o *Order) (*Receipt, error)
}

// Assemble validates the cart against the snapshot and builds an Order. The
// subtotals are always recomputed here, never taken from an earlier quote.
func Assemble(snap *catalog.Snapshot, cart *Cart, ref uuid.UUID) (*Order, error) {
	if cart.Len() == 0 {
		return nil, ErrEmptyOrder
	}

	q := Calculate(snap, cart)
	if problems := q.Problems(); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	o := &Order{
		Reference: ref,
		SaleType:  cart.SaleType,
		Detail:    cart.Detail,
		Products:  make([]ProductItem, len(q.Products)),
		Combos:    make([]ComboItem, len(q.Combos)),
	}
	for i, l := range q.Products {
		o.Products[i] = ProductItem{
			ProductID: l.id,
			Quantity:  l.qty,
			Subtotal:  l.Subtotal,
		}
	}
	for i, l := range q.Combos {
		o.Combos[i] = ComboItem{
			ComboID:  l.id,
			Quantity: l.intQty,
			Subtotal: l.Subtotal,
		}
	}

	return o, nil
}
