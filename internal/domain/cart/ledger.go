package cart

import (
	"context"
	"math"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/vibe-commerce/internal/domain/product"
)

// Ledger is the single mutable cart. All mutation goes through its methods,
// which are serialized by one mutex so that every read-modify-write sequence
// (and the checkout drain) is atomic.
type Ledger struct {
	catalog product.Catalog

	mu    sync.Mutex
	lines []Line
}

// NewLedger returns an empty Ledger pricing lines against catalog.
func NewLedger(catalog product.Catalog) *Ledger {
	return &Ledger{catalog: catalog}
}

// AddItem increments the quantity of productID by qty, inserting a new line
// when none exists.
func (l *Ledger) AddItem(ctx context.Context, productID string, qty int) (PricedCart, error) {
	if qty <= 0 {
		return PricedCart{}, &ValidationError{Field: "qty", Message: "must be a positive integer"}
	}
	if err := l.resolve(ctx, productID); err != nil {
		return PricedCart{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.find(productID); i >= 0 {
		if l.lines[i].Qty > math.MaxInt-qty {
			return PricedCart{}, &ValidationError{Field: "qty", Message: "quantity overflow"}
		}
		l.lines[i].Qty += qty
	} else {
		l.lines = append(l.lines, Line{ProductID: productID, Qty: qty})
	}
	return l.price(ctx)
}

// RemoveItem deletes the line for productID. Removing a product that is not
// in the cart is a *NotFoundError.
func (l *Ledger) RemoveItem(ctx context.Context, productID string) (PricedCart, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.find(productID)
	if i < 0 {
		return PricedCart{}, &NotFoundError{ProductID: productID}
	}
	l.lines = append(l.lines[:i], l.lines[i+1:]...)
	return l.price(ctx)
}

// SetQuantity overwrites the quantity of productID. A zero qty removes the
// line and is a no-op when the line is absent.
func (l *Ledger) SetQuantity(ctx context.Context, productID string, qty int) (PricedCart, error) {
	if qty < 0 {
		return PricedCart{}, &ValidationError{Field: "qty", Message: "must be a non-negative integer"}
	}
	if qty > 0 {
		if err := l.resolve(ctx, productID); err != nil {
			return PricedCart{}, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.find(productID)
	switch {
	case qty == 0 && i >= 0:
		l.lines = append(l.lines[:i], l.lines[i+1:]...)
	case qty == 0:
	case i >= 0:
		l.lines[i].Qty = qty
	default:
		l.lines = append(l.lines, Line{ProductID: productID, Qty: qty})
	}
	return l.price(ctx)
}

// Get returns the current priced cart.
func (l *Ledger) Get(ctx context.Context) (PricedCart, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.price(ctx)
}

// Lines returns a copy of the raw ledger lines in insertion order.
func (l *Ledger) Lines() []Line {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

// Drain prices the cart and hands the snapshot to fn while holding the ledger
// lock. The ledger is emptied only if fn returns nil; otherwise it is left
// exactly as it was and fn's error is returned.
func (l *Ledger) Drain(ctx context.Context, fn func(snapshot PricedCart) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot, err := l.price(ctx)
	if err != nil {
		return err
	}
	if err := fn(snapshot); err != nil {
		return err
	}
	l.lines = nil
	return nil
}

// resolve verifies that productID exists in the catalog.
func (l *Ledger) resolve(ctx context.Context, productID string) error {
	if productID == "" {
		return &ValidationError{Field: "productId", Message: "required"}
	}
	if _, err := l.catalog.GetByID(ctx, productID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return &ValidationError{Field: "productId", Message: "unknown product " + productID}
		}
		return errors.Wrapf(err, "get product %s", productID)
	}
	return nil
}

// find returns the index of the line for productID, or -1. Caller holds l.mu.
func (l *Ledger) find(productID string) int {
	for i, line := range l.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// price joins the ledger with the catalog. Caller holds l.mu.
func (l *Ledger) price(ctx context.Context) (PricedCart, error) {
	cart := PricedCart{
		Items: make([]PricedLine, 0, len(l.lines)),
		Total: decimal.Zero,
	}
	for _, line := range l.lines {
		p, err := l.catalog.GetByID(ctx, line.ProductID)
		if err != nil {
			return PricedCart{}, errors.Wrapf(err, "price line %s", line.ProductID)
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(line.Qty)))
		cart.Items = append(cart.Items, PricedLine{
			ProductID: line.ProductID,
			Name:      p.Name,
			Price:     p.Price,
			Qty:       line.Qty,
			Subtotal:  subtotal,
		})
		cart.Total = cart.Total.Add(subtotal)
	}
	return cart, nil
}
