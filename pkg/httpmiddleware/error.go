package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
)

// writeError writes the API error body {"code": ..., "message": ...}.
func writeError(w http.ResponseWriter, code int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
