package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/vibe-commerce/internal/domain/cart"
	"github.com/xenking/vibe-commerce/internal/domain/checkout"
	"github.com/xenking/vibe-commerce/internal/jsonx"
)

func decodeCustomer(d *jx.Decoder) (checkout.Customer, error) {
	var c checkout.Customer
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var dst *string
		switch key {
		case "name":
			dst = &c.Name
		case "email":
			dst = &c.Email
		default:
			return d.Skip()
		}
		if d.Next() != jx.String {
			return &cart.ValidationError{Field: key, Message: "must be a string"}
		}
		v, err := d.Str()
		*dst = v
		return err
	}); err != nil {
		var vErr *cart.ValidationError
		if errors.As(err, &vErr) {
			return checkout.Customer{}, vErr
		}
		return checkout.Customer{}, errMalformed
	}
	if err := jsonx.ExpectEnd(d); err != nil {
		return checkout.Customer{}, errMalformed
	}
	return c, nil
}

// Checkout turns the cart into a receipt and answers 201 with its summary.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := func() (*checkout.Summary, error) {
		d, err := readBody(r)
		if err != nil {
			return nil, err
		}
		customer, err := decodeCustomer(d)
		if err != nil {
			return nil, err
		}
		return h.checkout.Checkout(ctx, customer)
	}()
	h.metrics.op(ctx, "checkout", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.metrics.receipt(ctx, summary.Total)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("receipt.id", summary.ReceiptID),
		attribute.String("receipt.total", summary.Total.String()),
	)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeSummary(e, summary) })
}

// ListReceipts returns every receipt issued since startup.
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.checkout.Receipts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, rc := range receipts {
			encodeReceipt(e, rc)
		}
		e.ArrEnd()
	})
}
