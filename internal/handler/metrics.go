package handler

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	cartOps  metric.Int64Counter
	receipts metric.Int64Counter
	revenue  metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	cartOps, err := m.Int64Counter("cart.operations",
		metric.WithDescription("Cart ledger operations by op and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "cart.operations")
	}
	receipts, err := m.Int64Counter("checkout.receipts",
		metric.WithDescription("Receipts issued"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "checkout.receipts")
	}
	revenue, err := m.Int64Counter("checkout.revenue",
		metric.WithDescription("Sum of receipt totals"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "checkout.revenue")
	}
	return &metrics{cartOps: cartOps, receipts: receipts, revenue: revenue}, nil
}

// op records one cart or checkout operation; err nil means success.
func (m *metrics) op(ctx context.Context, name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome, _ = errorKind(err)
	}
	m.cartOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", name),
		attribute.String("outcome", outcome),
	))
}

func (m *metrics) receipt(ctx context.Context, total decimal.Decimal) {
	m.receipts.Add(ctx, 1)
	m.revenue.Add(ctx, total.IntPart())
}
