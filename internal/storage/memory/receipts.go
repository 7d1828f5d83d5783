package memory

import (
	"context"
	"sync"

	"github.com/xenking/vibe-commerce/internal/domain/checkout"
)

var _ checkout.ReceiptLog = (*ReceiptLog)(nil)

// ReceiptLog is an unbounded append-only checkout.ReceiptLog.
type ReceiptLog struct {
	mu       sync.RWMutex
	receipts []checkout.Receipt
}

// NewReceiptLog returns an empty ReceiptLog.
func NewReceiptLog() *ReceiptLog {
	return &ReceiptLog{}
}

// Append stores a copy of r.
func (l *ReceiptLog) Append(_ context.Context, r checkout.Receipt) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.receipts = append(l.receipts, r.Clone())
	return nil
}

// List returns copies of all receipts in append order.
func (l *ReceiptLog) List(_ context.Context) ([]checkout.Receipt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]checkout.Receipt, len(l.receipts))
	for i, r := range l.receipts {
		out[i] = r.Clone()
	}
	return out, nil
}
