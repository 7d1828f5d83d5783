package handler

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/vibe-commerce/internal/domain/cart"
	"github.com/xenking/vibe-commerce/internal/domain/checkout"
	"github.com/xenking/vibe-commerce/internal/domain/product"
)

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

func encodeAmount(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func encodeTimestamp(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(timestampLayout))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	encodeAmount(e, p.Price)
	e.ObjEnd()
}

func encodeLines(e *jx.Encoder, items []cart.PricedLine) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		encodeAmount(e, it.Price)
		e.FieldStart("qty")
		e.Int(it.Qty)
		e.FieldStart("subtotal")
		encodeAmount(e, it.Subtotal)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeCart(e *jx.Encoder, c cart.PricedCart) {
	e.ObjStart()
	e.FieldStart("items")
	encodeLines(e, c.Items)
	e.FieldStart("total")
	encodeAmount(e, c.Total)
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s *checkout.Summary) {
	e.ObjStart()
	e.FieldStart("receiptId")
	e.Str(s.ReceiptID)
	e.FieldStart("total")
	encodeAmount(e, s.Total)
	e.FieldStart("timestamp")
	encodeTimestamp(e, s.Timestamp)
	e.ObjEnd()
}

func encodeReceipt(e *jx.Encoder, r checkout.Receipt) {
	e.ObjStart()
	e.FieldStart("receiptId")
	e.Str(r.ID)
	e.FieldStart("total")
	encodeAmount(e, r.Total)
	e.FieldStart("timestamp")
	encodeTimestamp(e, r.Timestamp)
	e.FieldStart("name")
	e.Str(r.Name)
	e.FieldStart("email")
	e.Str(r.Email)
	e.FieldStart("items")
	encodeLines(e, r.Items)
	e.ObjEnd()
}
