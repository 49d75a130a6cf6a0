package sale

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/counter-pos/internal/domain/catalog"
)

var halfUnit = decimal.RequireFromString("0.5")

// Quantities outside these bounds are refused before any arithmetic: a huge
// exponent makes every rescale allocate a number of that many digits.
const (
	minQuantityExp = -6
	maxQuantityExp = 6
)

var maxQuantity = decimal.NewFromInt(100_000)

// ProductSubtotal prices a weighed quantity: every whole unit at the whole
// unit rate plus one half unit when the fractional part is exactly 0.5. Any
// other fractional remainder is not charged.
func ProductSubtotal(qty, wholePrice, halfPrice decimal.Decimal) decimal.Decimal {
	whole := qty.Floor()
	subtotal := whole.Mul(wholePrice)
	if qty.Sub(whole).Equal(halfUnit) {
		subtotal = subtotal.Add(halfPrice)
	}
	return subtotal
}

// ComboSubtotal prices a number of combos at the combo's fixed price.
func ComboSubtotal(price decimal.Decimal, qty int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(qty))
}

// LineQuote is the priced view of a single line. Lines with problems have a
// zero subtotal and are excluded from the total.
type LineQuote struct {
	Ref      LineRef
	Name     string
	Subtotal decimal.Decimal
	Problems []Problem

	id     int64
	qty    decimal.Decimal
	intQty int64
}

// Valid reports whether the line resolved and parsed cleanly.
func (l LineQuote) Valid() bool { return len(l.Problems) == 0 }

// Display formats the subtotal for presentation.
func (l LineQuote) Display() string { return l.Subtotal.StringFixed(2) }

// Quote is the result of one calculation pass over a cart.
type Quote struct {
	Products []LineQuote
	Combos   []LineQuote
	Total    decimal.Decimal
}

// DisplayTotal formats the total for presentation. Only this boundary rounds.
func (q Quote) DisplayTotal() string { return q.Total.StringFixed(2) }

// Problems returns every line problem in cart order, products first.
func (q Quote) Problems() []Problem {
	var out []Problem
	for _, l := range q.Products {
		out = append(out, l.Problems...)
	}
	for _, l := range q.Combos {
		out = append(out, l.Problems...)
	}
	return out
}

// Calculate prices every line of the cart against the snapshot. It is pure:
// identical inputs always yield identical quotes.
func Calculate(snap *catalog.Snapshot, cart *Cart) Quote {
	q := Quote{
		Products: make([]LineQuote, len(cart.products)),
		Combos:   make([]LineQuote, len(cart.combos)),
		Total:    decimal.Zero,
	}

	for i, line := range cart.products {
		lq := quoteProductLine(snap, LineRef{Kind: KindProduct, Index: i}, line)
		q.Total = q.Total.Add(lq.Subtotal)
		q.Products[i] = lq
	}
	for i, line := range cart.combos {
		lq := quoteComboLine(snap, LineRef{Kind: KindCombo, Index: i}, line)
		q.Total = q.Total.Add(lq.Subtotal)
		q.Combos[i] = lq
	}

	return q
}

func quoteProductLine(snap *catalog.Snapshot, ref LineRef, line ProductLine) LineQuote {
	lq := LineQuote{Ref: ref, Subtotal: decimal.Zero}

	p, idOK := resolveProduct(snap, line.ProductID)
	if !idOK {
		lq.Problems = append(lq.Problems, Problem{
			Ref:   ref,
			Field: FieldID,
			Err:   &UnresolvedReferenceError{Kind: KindProduct, ID: strings.TrimSpace(line.ProductID)},
		})
	}

	qty, qtyErr := parseWeight(line.Quantity)
	if qtyErr != nil {
		lq.Problems = append(lq.Problems, Problem{Ref: ref, Field: FieldQuantity, Err: qtyErr})
	}

	if !lq.Valid() {
		return lq
	}

	lq.id = p.ID
	lq.Name = p.Name
	lq.qty = qty
	lq.Subtotal = ProductSubtotal(qty, p.PricePerWholeUnit, p.PricePerHalfUnit)
	return lq
}

func quoteComboLine(snap *catalog.Snapshot, ref LineRef, line ComboLine) LineQuote {
	lq := LineQuote{Ref: ref, Subtotal: decimal.Zero}

	c, idOK := resolveCombo(snap, line.ComboID)
	if !idOK {
		lq.Problems = append(lq.Problems, Problem{
			Ref:   ref,
			Field: FieldID,
			Err:   &UnresolvedReferenceError{Kind: KindCombo, ID: strings.TrimSpace(line.ComboID)},
		})
	}

	qty, qtyErr := parseCount(line.Quantity)
	if qtyErr != nil {
		lq.Problems = append(lq.Problems, Problem{Ref: ref, Field: FieldQuantity, Err: qtyErr})
	}

	if !lq.Valid() {
		return lq
	}

	lq.id = c.ID
	lq.Name = c.Name
	lq.intQty = qty
	lq.Subtotal = ComboSubtotal(c.Price, qty)
	return lq
}

func resolveProduct(snap *catalog.Snapshot, raw string) (catalog.Product, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return catalog.Product{}, false
	}
	return snap.Product(id)
}

func resolveCombo(snap *catalog.Snapshot, raw string) (catalog.Combo, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return catalog.Combo{}, false
	}
	return snap.Combo(id)
}

// parseWeight accepts any non-negative decimal number.
func parseWeight(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, &MalformedQuantityError{Value: raw, Reason: "is required"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &MalformedQuantityError{Value: raw, Reason: "is not a number"}
	}
	if d.IsNegative() {
		return decimal.Zero, &MalformedQuantityError{Value: raw, Reason: "must not be negative"}
	}
	if exp := d.Exponent(); exp < minQuantityExp || exp > maxQuantityExp || d.GreaterThan(maxQuantity) {
		return decimal.Zero, &MalformedQuantityError{Value: raw, Reason: "is out of range"}
	}
	return d, nil
}

// parseCount accepts non-negative whole numbers only.
func parseCount(raw string) (int64, error) {
	d, err := parseWeight(raw)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, &MalformedQuantityError{Value: raw, Reason: "must be a whole number"}
	}
	n := d.IntPart()
	if !decimal.NewFromInt(n).Equal(d) {
		return 0, &MalformedQuantityError{Value: raw, Reason: "is out of range"}
	}
	return n, nil
}
