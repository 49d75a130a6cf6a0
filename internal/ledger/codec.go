package ledger

import (
	"github.com/go-faster/jx"

	"github.com/xenking/counter-pos/internal/domain/sale"
)

// encodeOrder renders the ledger payload. Profit is always zero: the ledger
// computes it from cost data this service does not have. Combo subtotals are
// not transmitted.
func encodeOrder(o *sale.Order) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("saleType")
	e.Str(o.SaleType)
	e.FieldStart("detail")
	e.Str(o.Detail)
	e.FieldStart("profit")
	e.Int(0)

	e.FieldStart("productLines")
	e.ArrStart()
	for _, p := range o.Products {
		e.ObjStart()
		e.FieldStart("productId")
		e.Int64(p.ProductID)
		e.FieldStart("quantity")
		e.Num(jx.Num(p.Quantity.String()))
		e.FieldStart("subtotal")
		e.Num(jx.Num(p.Subtotal.String()))
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("comboLines")
	e.ArrStart()
	for _, c := range o.Combos {
		e.ObjStart()
		e.FieldStart("comboId")
		e.Int64(c.ComboID)
		e.FieldStart("quantity")
		e.Int64(c.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()

	out := make([]byte, len(e.Bytes()))
	copy(out, e.Bytes())
	return out
}

type response struct {
	SaleID  string
	Message string
}

// decodeResponse extracts the sale id and message from a ledger response.
// Unparseable bodies yield an empty response; the status code decides the
// outcome.
func decodeResponse(data []byte) response {
	var r response
	if len(data) == 0 {
		return r
	}

	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return r
	}
	_ = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "message", "error":
			s, err := scalarString(d)
			if err != nil {
				return err
			}
			if r.Message == "" {
				r.Message = s
			}
		case "saleId", "id", "ventaID":
			s, err := scalarString(d)
			if err != nil {
				return err
			}
			if r.SaleID == "" {
				r.SaleID = s
			}
		default:
			return d.Skip()
		}
		return nil
	})
	return r
}

// scalarString reads a string or number as text; other values are skipped.
func scalarString(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return string(n), nil
	default:
		return "", d.Skip()
	}
}
