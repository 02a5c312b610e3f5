package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/sales-service/internal/domain/product"
	"github.com/xenking/sales-service/internal/domain/sale"
	"github.com/xenking/sales-service/internal/usecase"
)

// errMalformed marks request bodies that are not valid JSON for the endpoint.
var errMalformed = errors.New("malformed request")

func malformed(err error) error {
	return errors.Wrap(errMalformed, err.Error())
}

func decodeCreate(b []byte) (usecase.CreateInput, error) {
	var in usecase.CreateInput
	err := jx.DecodeBytes(b).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "customer_id":
			in.CustomerID, err = decodeUUID(d)
		case "branch_id":
			in.BranchID, err = decodeUUID(d)
		case "number":
			in.Number, err = d.Str()
		case "items":
			in.Items, err = decodeItems(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %s", key)
		}
		return nil
	})
	if err != nil {
		return in, malformed(err)
	}
	return in, nil
}

// decodeUpdate leaves in.Items nil when "items" is absent or null.
func decodeUpdate(b []byte, id uuid.UUID) (usecase.UpdateInput, error) {
	in := usecase.UpdateInput{ID: id}
	err := jx.DecodeBytes(b).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "customer_id":
			in.CustomerID, err = decodeUUID(d)
		case "branch_id":
			in.BranchID, err = decodeUUID(d)
		case "items":
			in.Items, err = decodeItems(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %s", key)
		}
		return nil
	})
	if err != nil {
		return in, malformed(err)
	}
	return in, nil
}

// decodeCancel accepts an empty body.
func decodeCancel(b []byte) (reason string, _ error) {
	if len(b) == 0 {
		return "", nil
	}
	err := jx.DecodeBytes(b).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "reason" {
			return d.Skip()
		}
		var err error
		reason, err = d.Str()
		return err
	})
	if err != nil {
		return "", malformed(err)
	}
	return reason, nil
}

func decodeItems(d *jx.Decoder) ([]usecase.LineInput, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	items := make([]usecase.LineInput, 0)
	err := d.Arr(func(d *jx.Decoder) error {
		var line usecase.LineInput
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "product_id":
				line.ProductID, err = decodeUUID(d)
			case "quantity":
				line.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		items = append(items, line)
		return nil
	})
	return items, err
}

func decodeUUID(d *jx.Decoder) (uuid.UUID, error) {
	s, err := d.Str()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(s)
}

func encodeSale(e *jx.Encoder, s *sale.Sale) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(s.ID().String()) })
		e.Field("number", func(e *jx.Encoder) { e.Str(s.Number()) })
		e.Field("date", func(e *jx.Encoder) { encodeTime(e, s.Date()) })
		e.Field("customer", func(e *jx.Encoder) { encodeParty(e, s.Customer()) })
		e.Field("branch", func(e *jx.Encoder) { encodeParty(e, s.Branch()) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(s.Status())) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(s.Currency()) })
		e.Field("total", func(e *jx.Encoder) { e.Str(s.Total().Amount().StringFixed(2)) })
		e.Field("total_formatted", func(e *jx.Encoder) { e.Str(s.Total().String()) })
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, s.CreatedAt()) })
		if at := s.UpdatedAt(); at != nil {
			e.Field("updated_at", func(e *jx.Encoder) { encodeTime(e, *at) })
		}
		if at := s.CancelledAt(); at != nil {
			e.Field("cancelled_at", func(e *jx.Encoder) { encodeTime(e, *at) })
		}
		e.Field("version", func(e *jx.Encoder) { e.Int(s.Version()) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range s.Items() {
					encodeItem(e, it)
				}
			})
		})
	})
}

func encodeItem(e *jx.Encoder, it sale.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(it.ID().String()) })
		e.Field("product_id", func(e *jx.Encoder) { e.Str(it.ProductID().String()) })
		e.Field("product_name", func(e *jx.Encoder) { e.Str(it.ProductName()) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity()) })
		e.Field("unit_price", func(e *jx.Encoder) { e.Str(it.UnitPrice().Amount().StringFixed(2)) })
		e.Field("discount_rate", func(e *jx.Encoder) { e.Str(it.DiscountRate().StringFixed(2)) })
		e.Field("discount", func(e *jx.Encoder) { e.Str(it.Discount().StringFixed(2)) })
		e.Field("total", func(e *jx.Encoder) { e.Str(it.Total().Amount().StringFixed(2)) })
	})
}

func encodeParty(e *jx.Encoder, p sale.Party) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID.String()) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
	})
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID.String()) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		if p.Description != "" {
			e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		}
		e.Field("price", func(e *jx.Encoder) { e.Str(p.Price.Amount().StringFixed(2)) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(p.Price.Currency()) })
		e.Field("price_formatted", func(e *jx.Encoder) { e.Str(p.Price.String()) })
	})
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}
