// Package cart implements the process-wide cart ledger: a list of product
// quantities priced on demand against the catalog.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Line is a single ledger entry. A stored line always has Qty > 0.
type Line struct {
	ProductID string
	Qty       int
}

// PricedLine is a ledger line joined with its catalog name and price.
type PricedLine struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Qty       int
	Subtotal  decimal.Decimal
}

// PricedCart is the derived view of the ledger. It is recomputed on every
// read and owns its Items slice.
type PricedCart struct {
	Items []PricedLine
	Total decimal.Decimal
}

// Empty reports whether the cart has no lines.
func (c PricedCart) Empty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy of the cart.
func (c PricedCart) Clone() PricedCart {
	items := make([]PricedLine, len(c.Items))
	copy(items, c.Items)
	return PricedCart{Items: items, Total: c.Total}
}

// ValidationError indicates malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError indicates an operation targeted a cart line that does not exist.
type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not in cart", e.ProductID)
}
