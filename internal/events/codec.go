package events

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/sales-service/internal/domain/sale"
)

// Encode renders ev as the JSON payload sent to external consumers. Money
// amounts are fixed two-decimal strings.
func Encode(ev sale.Event) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(ev.ID.String()) })
		e.Field("type", func(e *jx.Encoder) { e.Str(string(ev.Type)) })
		e.Field("occurred_at", func(e *jx.Encoder) { e.Str(ev.OccurredAt.UTC().Format(time.RFC3339Nano)) })
		if ev.Reason != "" {
			e.Field("reason", func(e *jx.Encoder) { e.Str(ev.Reason) })
		}
		e.Field("sale", func(e *jx.Encoder) { encodeSnapshot(e, ev.Sale) })
	})
	return e.Bytes()
}

func encodeSnapshot(e *jx.Encoder, s sale.Snapshot) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(s.ID.String()) })
		e.Field("number", func(e *jx.Encoder) { e.Str(s.Number) })
		e.Field("date", func(e *jx.Encoder) { e.Str(s.Date.UTC().Format(time.RFC3339)) })
		e.Field("customer_id", func(e *jx.Encoder) { e.Str(s.Customer.ID.String()) })
		e.Field("customer_name", func(e *jx.Encoder) { e.Str(s.Customer.Name) })
		e.Field("branch_id", func(e *jx.Encoder) { e.Str(s.Branch.ID.String()) })
		e.Field("branch_name", func(e *jx.Encoder) { e.Str(s.Branch.Name) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(s.Status)) })
		e.Field("total", func(e *jx.Encoder) { e.Str(s.Total.StringFixed(2)) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(s.Currency) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range s.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("product_id", func(e *jx.Encoder) { e.Str(it.ProductID.String()) })
						e.Field("product_name", func(e *jx.Encoder) { e.Str(it.ProductName) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("unit_price", func(e *jx.Encoder) { e.Str(it.UnitPrice.StringFixed(2)) })
						e.Field("discount", func(e *jx.Encoder) { e.Str(it.DiscountRate.StringFixed(2)) })
						e.Field("total", func(e *jx.Encoder) { e.Str(it.Total.StringFixed(2)) })
					})
				}
			})
		})
	})
}
