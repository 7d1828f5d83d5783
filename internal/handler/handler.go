// Package handler exposes the storefront over HTTP. Requests and responses
// are JSON, encoded and decoded with go-faster/jx.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/vibe-commerce/internal/domain/cart"
	"github.com/xenking/vibe-commerce/internal/domain/checkout"
	"github.com/xenking/vibe-commerce/internal/domain/product"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

var errMalformed = &cart.ValidationError{Field: "body", Message: "malformed JSON"}

// Cart is the ledger surface used by the cart endpoints.
type Cart interface {
	AddItem(ctx context.Context, productID string, qty int) (cart.PricedCart, error)
	RemoveItem(ctx context.Context, productID string) (cart.PricedCart, error)
	SetQuantity(ctx context.Context, productID string, qty int) (cart.PricedCart, error)
	Get(ctx context.Context) (cart.PricedCart, error)
}

// Checkout is the checkout surface used by the checkout and receipt endpoints.
type Checkout interface {
	Checkout(ctx context.Context, c checkout.Customer) (*checkout.Summary, error)
	Receipts(ctx context.Context) ([]checkout.Receipt, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// Banner is served as plain text on GET /.
	Banner string
	// MeterProvider receives domain counters. Nil disables them.
	MeterProvider metric.MeterProvider
}

// Handler serves the storefront API.
type Handler struct {
	catalog  product.Catalog
	cart     Cart
	checkout Checkout
	metrics  *metrics
	banner   string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	catalog product.Catalog,
	c Cart,
	co Checkout,
) (*Handler, error) {
	mp := cfg.MeterProvider
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	m, err := newMetrics(mp.Meter("github.com/xenking/vibe-commerce/internal/handler"))
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}
	banner := cfg.Banner
	if banner == "" {
		banner = "Vibe Commerce Backend"
	}
	return &Handler{
		catalog:  catalog,
		cart:     c,
		checkout: co,
		metrics:  m,
		banner:   banner,
	}, nil
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart", h.AddItem)
	mux.HandleFunc("POST /api/cart/update", h.SetQuantity)
	mux.HandleFunc("DELETE /api/cart/{productId}", h.RemoveItem)
	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/receipts", h.ListReceipts)
}

// Index serves the plain-text banner.
func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	writeText(w, h.banner)
}

// Health is the plain liveness probe kept for simple clients; /livez and
// /readyz carry the detailed checks.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeText(w, "OK")
}

// readBody reads a capped request body into a jx decoder.
func readBody(r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(data) > maxBodyBytes {
		return nil, &cart.ValidationError{Field: "body", Message: "too large"}
	}
	return jx.DecodeBytes(data), nil
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
