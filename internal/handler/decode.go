package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/counter-pos/internal/domain/sale"
)

type headerRequest struct {
	SaleType *string
	Detail   *string
}

func decodeHeaderRequest(r *http.Request) (headerRequest, error) {
	var req headerRequest
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "saleType":
			s, err := d.Str()
			req.SaleType = &s
			return err
		case "detail":
			s, err := d.Str()
			req.Detail = &s
			return err
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeAddLineRequest(r *http.Request) (sale.LineKind, error) {
	var kind string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "kind" {
			return d.Skip()
		}
		s, err := d.Str()
		kind = s
		return err
	})
	if err != nil {
		return "", err
	}
	return sale.ParseLineKind(kind)
}

// decodeSetFieldRequest reads {"field": "...", "value": ...}. The value may
// be a string or a number; numbers keep their literal text.
func decodeSetFieldRequest(r *http.Request) (sale.Field, string, error) {
	var (
		field    string
		value    string
		hasValue bool
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "field":
			s, err := d.Str()
			field = s
			return err
		case "value":
			hasValue = true
			switch d.Next() {
			case jx.String:
				s, err := d.Str()
				value = s
				return err
			case jx.Number:
				n, err := d.Num()
				value = string(n)
				return err
			case jx.Null:
				return d.Null()
			default:
				return errors.New("value must be a string or a number")
			}
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return "", "", err
	}
	if !hasValue {
		return "", "", badRequest(errors.New("value is required"))
	}
	f, err := sale.ParseField(field)
	if err != nil {
		return "", "", err
	}
	return f, value, nil
}

func decodeObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	data, err := readBody(r)
	if err != nil {
		return badRequest(err)
	}
	d := jx.DecodeBytes(data)
	if err := d.Obj(fn); err != nil {
		return badRequest(errors.Wrap(err, "decode request"))
	}
	return nil
}
