// Package checkout turns the current cart into a receipt and resets the cart.
package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/vibe-commerce/internal/domain/cart"
)

// ErrEmptyCart is returned when checkout is attempted with no items.
var ErrEmptyCart = errors.New("cart is empty")

// Cart is the part of the ledger checkout depends on.
type Cart interface {
	Drain(ctx context.Context, fn func(snapshot cart.PricedCart) error) error
}

// Customer identifies who is checking out.
type Customer struct {
	Name  string
	Email string
}

// Service encapsulates checkout business logic.
type Service struct {
	cart     Cart
	receipts ReceiptLog
	now      func() time.Time
	newID    func() string
}

// NewService creates a checkout Service draining c into receipts.
func NewService(c Cart, receipts ReceiptLog) *Service {
	return &Service{
		cart:     c,
		receipts: receipts,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Checkout validates the customer, snapshots the cart into a receipt, appends
// it to the log and empties the cart. Either all of that happens or none of
// it does.
func (s *Service) Checkout(ctx context.Context, c Customer) (*Summary, error) {
	name := strings.TrimSpace(c.Name)
	email := strings.TrimSpace(c.Email)
	if name == "" {
		return nil, &cart.ValidationError{Field: "name", Message: "required"}
	}
	if email == "" {
		return nil, &cart.ValidationError{Field: "email", Message: "required"}
	}

	var summary *Summary
	err := s.cart.Drain(ctx, func(snapshot cart.PricedCart) error {
		if snapshot.Empty() {
			return ErrEmptyCart
		}

		r := Receipt{
			ID:        s.newID(),
			Total:     snapshot.Total,
			Timestamp: s.now().UTC(),
			Name:      name,
			Email:     email,
			Items:     snapshot.Clone().Items,
		}
		if err := s.receipts.Append(ctx, r); err != nil {
			return errors.Wrap(err, "append receipt")
		}

		summary = &Summary{
			ReceiptID: r.ID,
			Total:     r.Total,
			Timestamp: r.Timestamp,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// Receipts returns every receipt in the order they were created.
func (s *Service) Receipts(ctx context.Context) ([]Receipt, error) {
	rs, err := s.receipts.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list receipts")
	}
	return rs, nil
}
