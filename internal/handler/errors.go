package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/vibe-commerce/internal/domain/cart"
	"github.com/xenking/vibe-commerce/internal/domain/checkout"
)

// errorKind labels an error for metrics and picks its status code.
func errorKind(err error) (kind string, status int) {
	var (
		vErr  *cart.ValidationError
		nfErr *cart.NotFoundError
	)
	switch {
	case errors.As(err, &vErr):
		return "validation", http.StatusBadRequest
	case errors.As(err, &nfErr):
		return "not_found", http.StatusNotFound
	case errors.Is(err, checkout.ErrEmptyCart):
		return "empty_cart", http.StatusBadRequest
	default:
		return "internal", http.StatusInternalServerError
	}
}

// writeError maps domain errors to {"code","message"} responses. Unexpected
// errors are logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	_, status := errorKind(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		message = "internal server error"
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}
