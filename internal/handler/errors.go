package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sales-service/internal/domain/branch"
	"github.com/xenking/sales-service/internal/domain/customer"
	"github.com/xenking/sales-service/internal/domain/money"
	"github.com/xenking/sales-service/internal/domain/product"
	"github.com/xenking/sales-service/internal/domain/sale"
)

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errMalformed),
		errors.Is(err, sale.ErrInvalidArgument),
		errors.Is(err, money.ErrNegativeAmount),
		errors.Is(err, money.ErrInvalidCurrency):
		return http.StatusBadRequest
	case errors.Is(err, sale.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, branch.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sale.ErrInvalidState),
		errors.Is(err, sale.ErrConflict),
		errors.Is(err, sale.ErrDuplicateNumber):
		return http.StatusConflict
	case errors.Is(err, sale.ErrInvariantViolation),
		errors.Is(err, money.ErrCurrencyMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"code", "message", "details"}. Internal errors
// are logged and their message hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal error"
	}

	var (
		rules []string
		iv    *sale.InvariantViolationError
	)
	if errors.As(err, &iv) {
		rules = iv.Rules
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		if len(rules) > 0 {
			e.Field("details", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, rule := range rules {
						e.Str(rule)
					}
				})
			})
		}
	})
	writeJSON(w, code, e.Bytes())
}

func writeJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
