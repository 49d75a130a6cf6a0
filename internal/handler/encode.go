package handler

import (
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/counter-pos/internal/domain/catalog"
	"github.com/xenking/counter-pos/internal/domain/sale"
)

// money writes an unrounded amount as a JSON number.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func encodeProblems(e *jx.Encoder, problems []sale.Problem) {
	e.ArrStart()
	for _, p := range problems {
		e.ObjStart()
		e.FieldStart("kind")
		e.Str(string(p.Ref.Kind))
		e.FieldStart("index")
		e.Int(p.Ref.Index)
		e.FieldStart("field")
		e.Str(string(p.Field))
		e.FieldStart("message")
		e.Str(p.Err.Error())
		e.ObjEnd()
	}
	e.ArrEnd()
}

// encodeSession writes the cart together with its quote. Subtotals are sent
// unrounded; the display fields carry the two-decimal presentation.
func encodeSession(e *jx.Encoder, id string, cart *sale.Cart, q sale.Quote) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(id)
	e.FieldStart("saleType")
	e.Str(cart.SaleType)
	e.FieldStart("detail")
	e.Str(cart.Detail)

	products := cart.ProductLines()
	e.FieldStart("productLines")
	e.ArrStart()
	for i, l := range products {
		encodeLine(e, l.ProductID, l.Quantity, q.Products[i])
	}
	e.ArrEnd()

	combos := cart.ComboLines()
	e.FieldStart("comboLines")
	e.ArrStart()
	for i, l := range combos {
		encodeLine(e, l.ComboID, l.Quantity, q.Combos[i])
	}
	e.ArrEnd()

	e.FieldStart("total")
	money(e, q.Total)
	e.FieldStart("display")
	e.Str(q.DisplayTotal())
	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, id, qty string, lq sale.LineQuote) {
	e.ObjStart()
	e.FieldStart("index")
	e.Int(lq.Ref.Index)
	e.FieldStart("id")
	e.Str(id)
	e.FieldStart("quantity")
	e.Str(qty)
	if lq.Name != "" {
		e.FieldStart("name")
		e.Str(lq.Name)
	}
	e.FieldStart("subtotal")
	money(e, lq.Subtotal)
	e.FieldStart("display")
	e.Str(lq.Display())
	e.FieldStart("valid")
	e.Bool(lq.Valid())
	if !lq.Valid() {
		e.FieldStart("problems")
		encodeProblems(e, lq.Problems)
	}
	e.ObjEnd()
}

func encodeReceipt(e *jx.Encoder, r *sale.Receipt) {
	e.ObjStart()
	e.FieldStart("reference")
	e.Str(r.Reference.String())
	if r.SaleID != "" {
		e.FieldStart("saleId")
		e.Str(r.SaleID)
	}
	if r.Message != "" {
		e.FieldStart("message")
		e.Str(r.Message)
	}
	e.FieldStart("total")
	money(e, r.Total)
	e.FieldStart("display")
	e.Str(r.Total.StringFixed(2))
	e.ObjEnd()
}

func encodeCatalog(e *jx.Encoder, snap *catalog.Snapshot) {
	e.ObjStart()
	e.FieldStart("products")
	e.ArrStart()
	for _, p := range snap.Products() {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(p.ID)
		e.FieldStart("name")
		e.Str(p.Name)
		e.FieldStart("pricePerWholeUnit")
		money(e, p.PricePerWholeUnit)
		e.FieldStart("pricePerHalfUnit")
		money(e, p.PricePerHalfUnit)
		e.FieldStart("availableWeight")
		money(e, p.AvailableWeight)
		e.FieldStart("minimumQuantity")
		e.Int(p.MinimumQuantity)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("combos")
	e.ArrStart()
	for _, c := range snap.Combos() {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(c.ID)
		e.FieldStart("name")
		e.Str(c.Name)
		e.FieldStart("description")
		e.Str(c.Description)
		e.FieldStart("fixedPrice")
		money(e, c.Price)
		e.FieldStart("constituents")
		e.ArrStart()
		for _, k := range c.Constituents {
			e.ObjStart()
			e.FieldStart("productId")
			e.Int64(k.ProductID)
			e.FieldStart("quantity")
			e.Int(k.Quantity)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
