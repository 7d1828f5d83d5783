package handler

import (
	"math"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/vibe-commerce/internal/domain/cart"
	"github.com/xenking/vibe-commerce/internal/jsonx"
)

// itemRequest is the body of POST /api/cart and POST /api/cart/update.
type itemRequest struct {
	ProductID string
	Qty       int
}

var maxQty = decimal.NewFromInt(math.MaxInt)

func decodeItemRequest(d *jx.Decoder) (itemRequest, error) {
	var (
		req    itemRequest
		hasQty bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			if d.Next() != jx.String {
				return &cart.ValidationError{Field: "productId", Message: "must be a string"}
			}
			id, err := d.Str()
			req.ProductID = id
			return err
		case "qty":
			qty, err := decodeQty(d)
			if err != nil {
				return err
			}
			req.Qty = qty
			hasQty = true
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		var vErr *cart.ValidationError
		if errors.As(err, &vErr) {
			return itemRequest{}, vErr
		}
		return itemRequest{}, errMalformed
	}
	if err := jsonx.ExpectEnd(d); err != nil {
		return itemRequest{}, errMalformed
	}

	if req.ProductID == "" {
		return itemRequest{}, &cart.ValidationError{Field: "productId", Message: "required"}
	}
	if !hasQty {
		return itemRequest{}, &cart.ValidationError{Field: "qty", Message: "required"}
	}
	return req, nil
}

// decodeQty accepts any JSON number with an integral value, so 2 and 2.0 are
// both 2 while 1.5 and "2" are rejected.
func decodeQty(d *jx.Decoder) (int, error) {
	invalid := &cart.ValidationError{Field: "qty", Message: "must be an integer"}
	if d.Next() != jx.Number {
		return 0, invalid
	}
	n, err := d.Num()
	if err != nil {
		return 0, err
	}
	v, err := jsonx.Decimal(n)
	switch {
	case errors.Is(err, jsonx.ErrOutOfRange):
		return 0, &cart.ValidationError{Field: "qty", Message: "out of range"}
	case err != nil || !v.IsInteger():
		return 0, invalid
	case v.Abs().GreaterThan(maxQty):
		return 0, &cart.ValidationError{Field: "qty", Message: "out of range"}
	}
	return int(v.IntPart()), nil
}

// GetCart returns the priced cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.Get(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "get cart"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, c) })
}

// AddItem adds qty of a product to the cart and answers 201 with the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.mutate(r, func(req itemRequest) (cart.PricedCart, error) {
		return h.cart.AddItem(ctx, req.ProductID, req.Qty)
	})
	h.metrics.op(ctx, "add", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCart(e, c) })
}

// SetQuantity overwrites a line quantity; zero removes the line.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.mutate(r, func(req itemRequest) (cart.PricedCart, error) {
		return h.cart.SetQuantity(ctx, req.ProductID, req.Qty)
	})
	h.metrics.op(ctx, "set", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, c) })
}

// RemoveItem deletes a line and answers {"success":true,"cart":{...}}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.cart.RemoveItem(ctx, r.PathValue("productId"))
	h.metrics.op(ctx, "remove", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("success")
		e.Bool(true)
		e.FieldStart("cart")
		encodeCart(e, c)
		e.ObjEnd()
	})
}

func (h *Handler) mutate(r *http.Request, apply func(itemRequest) (cart.PricedCart, error)) (cart.PricedCart, error) {
	d, err := readBody(r)
	if err != nil {
		return cart.PricedCart{}, err
	}
	req, err := decodeItemRequest(d)
	if err != nil {
		return cart.PricedCart{}, err
	}
	return apply(req)
}
