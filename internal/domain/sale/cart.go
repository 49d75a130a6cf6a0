package sale

import (
	"fmt"
	"slices"

	"github.com/go-faster/errors"
)

// DefaultSaleType is the sale type a fresh cart starts with.
const DefaultSaleType = "cash"

// Sentinel errors for line edits.
var (
	ErrLineNotFound = errors.New("line not found")
	ErrUnknownField = errors.New("unknown line field")
	ErrUnknownKind  = errors.New("unknown line kind")
)

// LineKind distinguishes product lines from combo lines.
type LineKind string

const (
	KindProduct LineKind = "product"
	KindCombo   LineKind = "combo"
)

// ParseLineKind validates a kind received from a caller.
func ParseLineKind(s string) (LineKind, error) {
	switch k := LineKind(s); k {
	case KindProduct, KindCombo:
		return k, nil
	default:
		return "", errors.Wrapf(ErrUnknownKind, "%q", s)
	}
}

// Field names one editable field of a line.
type Field string

const (
	FieldID       Field = "id"
	FieldQuantity Field = "quantity"
)

// ParseField validates a field name received from a caller.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldID, FieldQuantity:
		return f, nil
	default:
		return "", errors.Wrapf(ErrUnknownField, "%q", s)
	}
}

// LineRef addresses a line by kind and position.
type LineRef struct {
	Kind  LineKind
	Index int
}

func (r LineRef) String() string {
	return fmt.Sprintf("%s[%d]", r.Kind, r.Index)
}

// ProductLine is a weighed product entry. Values are kept exactly as the
// operator entered them; parsing happens during calculation.
type ProductLine struct {
	ProductID string
	Quantity  string
}

// ComboLine is a combo entry counted in whole combos.
type ComboLine struct {
	ComboID  string
	Quantity string
}

// Cart is the in-progress set of lines for one sale. It is not safe for
// concurrent use; Session serializes access.
type Cart struct {
	SaleType string
	Detail   string

	products []ProductLine
	combos   []ComboLine
}

// NewCart returns a cart with one empty product line and one empty combo line.
func NewCart() *Cart {
	return &Cart{
		SaleType: DefaultSaleType,
		products: []ProductLine{{}},
		combos:   []ComboLine{{}},
	}
}

// AddProductLine appends an empty product line and returns its index.
func (c *Cart) AddProductLine() int {
	c.products = append(c.products, ProductLine{})
	return len(c.products) - 1
}

// AddComboLine appends an empty combo line and returns its index.
func (c *Cart) AddComboLine() int {
	c.combos = append(c.combos, ComboLine{})
	return len(c.combos) - 1
}

// AddLine appends an empty line of the given kind.
func (c *Cart) AddLine(kind LineKind) (LineRef, error) {
	switch kind {
	case KindProduct:
		return LineRef{Kind: kind, Index: c.AddProductLine()}, nil
	case KindCombo:
		return LineRef{Kind: kind, Index: c.AddComboLine()}, nil
	default:
		return LineRef{}, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
}

// SetLineField replaces one field of one line. The value is not validated.
func (c *Cart) SetLineField(ref LineRef, field Field, value string) error {
	switch ref.Kind {
	case KindProduct:
		if ref.Index < 0 || ref.Index >= len(c.products) {
			return errors.Wrap(ErrLineNotFound, ref.String())
		}
		l := &c.products[ref.Index]
		switch field {
		case FieldID:
			l.ProductID = value
		case FieldQuantity:
			l.Quantity = value
		default:
			return errors.Wrapf(ErrUnknownField, "%q", field)
		}
	case KindCombo:
		if ref.Index < 0 || ref.Index >= len(c.combos) {
			return errors.Wrap(ErrLineNotFound, ref.String())
		}
		l := &c.combos[ref.Index]
		switch field {
		case FieldID:
			l.ComboID = value
		case FieldQuantity:
			l.Quantity = value
		default:
			return errors.Wrapf(ErrUnknownField, "%q", field)
		}
	default:
		return errors.Wrapf(ErrUnknownKind, "%q", ref.Kind)
	}
	return nil
}

// RemoveLine deletes a line; the remaining lines keep their relative order.
func (c *Cart) RemoveLine(ref LineRef) error {
	switch ref.Kind {
	case KindProduct:
		if ref.Index < 0 || ref.Index >= len(c.products) {
			return errors.Wrap(ErrLineNotFound, ref.String())
		}
		c.products = slices.Delete(c.products, ref.Index, ref.Index+1)
	case KindCombo:
		if ref.Index < 0 || ref.Index >= len(c.combos) {
			return errors.Wrap(ErrLineNotFound, ref.String())
		}
		c.combos = slices.Delete(c.combos, ref.Index, ref.Index+1)
	default:
		return errors.Wrapf(ErrUnknownKind, "%q", ref.Kind)
	}
	return nil
}

// SetSaleType sets the free-form sale type tag (cash, credit, ...).
func (c *Cart) SetSaleType(v string) { c.SaleType = v }

// SetDetail sets the free-text sale detail.
func (c *Cart) SetDetail(v string) { c.Detail = v }

// ProductLines returns a copy of the product lines.
func (c *Cart) ProductLines() []ProductLine { return slices.Clone(c.products) }

// ComboLines returns a copy of the combo lines.
func (c *Cart) ComboLines() []ComboLine { return slices.Clone(c.combos) }

// Len reports the total number of lines.
func (c *Cart) Len() int { return len(c.products) + len(c.combos) }

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	return &Cart{
		SaleType: c.SaleType,
		Detail:   c.Detail,
		products: slices.Clone(c.products),
		combos:   slices.Clone(c.combos),
	}
}
