package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/vibe-commerce/internal/domain/cart"
)

// Receipt is the immutable record of a completed checkout.
type Receipt struct {
	ID        string
	Total     decimal.Decimal
	Timestamp time.Time
	Name      string
	Email     string
	Items     []cart.PricedLine
}

// Clone returns a deep copy of the receipt.
func (r Receipt) Clone() Receipt {
	items := make([]cart.PricedLine, len(r.Items))
	copy(items, r.Items)
	r.Items = items
	return r
}

// Summary is what a successful checkout returns to the caller.
type Summary struct {
	ReceiptID string
	Total     decimal.Decimal
	Timestamp time.Time
}

// ReceiptLog is the append-only store of receipts.
type ReceiptLog interface {
	Append(ctx context.Context, r Receipt) error
	List(ctx context.Context) ([]Receipt, error)
}
