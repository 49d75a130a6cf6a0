package catalogapi

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/counter-pos/internal/domain/catalog"
)

// The catalog service historically used Spanish field names; both spellings
// are accepted.

func decodeProducts(data []byte) ([]catalog.Product, error) {
	var out []catalog.Product
	err := decodeList(jx.DecodeBytes(data), "products", func(d *jx.Decoder) error {
		p := catalog.Product{Active: true}
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "id", "productId", "ProductoID":
				p.ID, err = readInt(d)
			case "name", "Nombre":
				p.Name, err = readString(d)
			case "pricePerWholeUnit", "PrecioPorLibra":
				p.PricePerWholeUnit, err = readDecimal(d)
			case "pricePerHalfUnit", "PrecioPorMediaLibra":
				p.PricePerHalfUnit, err = readDecimal(d)
			case "availableWeight", "PesoDisponible":
				p.AvailableWeight, err = readDecimal(d)
			case "minimumQuantity", "CantidadMinima":
				var n int64
				n, err = readInt(d)
				p.MinimumQuantity = int(n)
			case "active", "Estado":
				p.Active, err = readActive(d)
			default:
				return d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %s", key)
			}
			return nil
		}); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func decodeCombos(data []byte) ([]catalog.Combo, error) {
	var out []catalog.Combo
	err := decodeList(jx.DecodeBytes(data), "combos", func(d *jx.Decoder) error {
		c := catalog.Combo{Active: true}
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "id", "comboId", "ComboID":
				c.ID, err = readInt(d)
			case "name", "NombreCombo":
				c.Name, err = readString(d)
			case "description", "Descripcion":
				c.Description, err = readString(d)
			case "fixedPrice", "price", "PrecioCombo":
				c.Price, err = readDecimal(d)
			case "active", "Estado":
				c.Active, err = readActive(d)
			case "constituents", "Productos", "productos":
				c.Constituents, err = readConstituents(d)
			default:
				return d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %s", key)
			}
			return nil
		}); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

func readConstituents(d *jx.Decoder) ([]catalog.Constituent, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var out []catalog.Constituent
	err := d.Arr(func(d *jx.Decoder) error {
		var c catalog.Constituent
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			switch string(key) {
			case "productId", "ProductoID", "productoID":
				id, err := readInt(d)
				c.ProductID = id
				return err
			case "quantity", "Cantidad", "cantidad":
				n, err := readInt(d)
				c.Quantity = int(n)
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// decodeList iterates the records of either a bare array or an object
// carrying the array under envelope.
func decodeList(d *jx.Decoder, envelope string, item func(d *jx.Decoder) error) error {
	switch d.Next() {
	case jx.Array:
		return d.Arr(item)
	case jx.Object:
		found := false
		err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != envelope {
				return d.Skip()
			}
			found = true
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Arr(item)
		})
		if err != nil {
			return err
		}
		if !found {
			return errors.Errorf("missing %q", envelope)
		}
		return nil
	default:
		return errors.Errorf("unexpected %s", d.Next())
	}
}

func readString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// readDecimal accepts JSON numbers and numeric strings; NUMERIC columns are
// often serialized as strings.
func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Null:
		return decimal.Zero, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(strings.TrimSpace(s))
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(string(n))
	}
}

func readInt(d *jx.Decoder) (int64, error) {
	v, err := readDecimal(d)
	if err != nil {
		return 0, err
	}
	if !v.IsInteger() {
		return 0, errors.Errorf("%s is not an integer", v)
	}
	return v.IntPart(), nil
}

// readActive understands booleans, 0/1 and textual states such as
// "Activo"/"Inactivo".
func readActive(d *jx.Decoder) (bool, error) {
	switch d.Next() {
	case jx.Bool:
		return d.Bool()
	case jx.Null:
		return true, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "active", "activo", "activa", "enabled":
			return true, nil
		case "0", "false", "inactive", "inactivo", "inactiva", "disabled":
			return false, nil
		default:
			return false, errors.Errorf("unknown state %q", s)
		}
	default:
		n, err := readInt(d)
		return n != 0, err
	}
}

// DecodeCatalog reads a combined document carrying both a "products" and a
// "combos" array, as used by catalog exports and seed files.
func DecodeCatalog(data []byte) ([]catalog.Product, []catalog.Combo, error) {
	products, err := decodeProducts(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "decode products")
	}
	combos, err := decodeCombos(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "decode combos")
	}
	return products, combos, nil
}
