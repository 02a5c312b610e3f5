package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/sales-service/internal/usecase"
)

// CreateSale handles POST /api/sales.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := decodeCreate(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.sales.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeSale(&e, s)
	w.Header().Set("Location", "/api/sales/"+s.ID().String())
	writeJSON(w, http.StatusCreated, e.Bytes())
}

// GetSale handles GET /api/sales/{id}.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.sales.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeSale(&e, s)
	writeJSON(w, http.StatusOK, e.Bytes())
}

// ListSales handles GET /api/sales?limit=&offset=&status=.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := usecase.ListInput{Status: q.Get("status")}
	for name, dst := range map[string]*int{"limit": &in.Limit, "offset": &in.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, errors.Wrapf(errMalformed, "query %s must be an integer", name))
			return
		}
		*dst = n
	}

	res, err := h.sales.List(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, s := range res.Sales {
					encodeSale(e, s)
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { e.Int(res.Total) })
		e.Field("limit", func(e *jx.Encoder) { e.Int(res.Limit) })
		e.Field("offset", func(e *jx.Encoder) { e.Int(res.Offset) })
	})
	writeJSON(w, http.StatusOK, e.Bytes())
}

// UpdateSale handles PUT /api/sales/{id}. Omitting "items" keeps the current
// lines.
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := decodeUpdate(body, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.sales.Update(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeSale(&e, s)
	writeJSON(w, http.StatusOK, e.Bytes())
}

// CancelSale handles POST /api/sales/{id}/cancel.
func (h *Handler) CancelSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reason, err := decodeCancel(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.sales.Cancel(r.Context(), id, reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeSale(&e, s)
	writeJSON(w, http.StatusOK, e.Bytes())
}

// DeleteSale handles DELETE /api/sales/{id}.
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sales.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			encodeProduct(e, p)
		}
	})
	writeJSON(w, http.StatusOK, e.Bytes())
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errors.Wrapf(errMalformed, "invalid sale id %q", r.PathValue("id"))
	}
	return id, nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, malformed(err)
	}
	return b, nil
}
