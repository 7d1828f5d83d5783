package cart

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vibe-commerce/internal/domain/product"
)

// --- Mock implementations ---

type mockCatalog struct {
	byID   map[string]*product.Product
	getErr error
}

func (m *mockCatalog) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

// --- Helpers ---

func newCatalog() *mockCatalog {
	products := []product.Product{
		{ID: "p1", Name: "Blue Hoodie", Price: decimal.NewFromInt(799)},
		{ID: "p2", Name: "White T-Shirt", Price: decimal.NewFromInt(399)},
		{ID: "p4", Name: "Cap", Price: decimal.NewFromInt(199)},
	}
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockCatalog{byID: byID}
}

func qtyOf(t *testing.T, c PricedCart, id string) int {
	t.Helper()
	for _, it := range c.Items {
		if it.ProductID == id {
			return it.Qty
		}
	}
	return 0
}

func assertLedgerInvariants(t *testing.T, l *Ledger) {
	t.Helper()
	seen := make(map[string]struct{})
	for _, line := range l.Lines() {
		_, dup := seen[line.ProductID]
		assert.False(t, dup, "duplicate line for %s", line.ProductID)
		assert.Positive(t, line.Qty, "line %s has non-positive qty", line.ProductID)
		seen[line.ProductID] = struct{}{}
	}
}

// --- Tests ---

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newCatalog())

	c, err := l.AddItem(ctx, "p1", 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Blue Hoodie", c.Items[0].Name)
	assert.True(t, decimal.NewFromInt(799).Equal(c.Items[0].Subtotal))
	assert.True(t, decimal.NewFromInt(799).Equal(c.Total))

	c, err = l.AddItem(ctx, "p4", 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.True(t, decimal.NewFromInt(398).Equal(c.Items[1].Subtotal))
	assert.True(t, decimal.NewFromInt(1197).Equal(c.Total))
}

func TestAddItem_Validation(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		qty       int
		field     string
	}{
		{name: "zero qty", productID: "p1", qty: 0, field: "qty"},
		{name: "negative qty", productID: "p1", qty: -3, field: "qty"},
		{name: "unknown product", productID: "unknown-id", qty: 1, field: "productId"},
		{name: "empty product id", productID: "", qty: 1, field: "productId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l := NewLedger(newCatalog())
			_, err := l.AddItem(ctx, "p2", 1)
			require.NoError(t, err)

			_, err = l.AddItem(ctx, tt.productID, tt.qty)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, []Line{{ProductID: "p2", Qty: 1}}, l.Lines(), "cart must be unchanged")
		})
	}
}

func TestAddItem_CatalogError(t *testing.T) {
	cat := newCatalog()
	cat.getErr = errors.New("catalog unavailable")
	l := NewLedger(cat)

	_, err := l.AddItem(context.Background(), "p1", 1)
	require.Error(t, err)

	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr))
	assert.Contains(t, err.Error(), "get product p1")
}

func TestAddItem_Overflow(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newCatalog())

	_, err := l.AddItem(ctx, "p1", math.MaxInt)
	require.NoError(t, err)

	_, err = l.AddItem(ctx, "p1", 1)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []Line{{ProductID: "p1", Qty: math.MaxInt}}, l.Lines())
}

func TestAccumulateThenOverwrite(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newCatalog())

	_, err := l.AddItem(ctx, "p1", 2)
	require.NoError(t, err)
	c, err := l.AddItem(ctx, "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 5, qtyOf(t, c, "p1"))

	c, err = l.SetQuantity(ctx, "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, qtyOf(t, c, "p1"))
	assert.Len(t, c.Items, 1)
}

func TestRemoveItem(t *testing.T) {
	t.Run("removes whole line", func(t *testing.T) {
		ctx := context.Background()
		l := NewLedger(newCatalog())
		_, err := l.AddItem(ctx, "p1", 4)
		require.NoError(t, err)
		_, err = l.AddItem(ctx, "p2", 1)
		require.NoError(t, err)

		c, err := l.RemoveItem(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, c.Items, 1)
		assert.Equal(t, "p2", c.Items[0].ProductID)
		assert.True(t, decimal.NewFromInt(399).Equal(c.Total))
	})

	t.Run("absent line is not found", func(t *testing.T) {
		l := NewLedger(newCatalog())

		_, err := l.RemoveItem(context.Background(), "p1")

		var nfErr *NotFoundError
		require.ErrorAs(t, err, &nfErr)
		assert.Equal(t, "p1", nfErr.ProductID)
	})
}

func TestAddThenRemoveRestoresCart(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newCatalog())
	_, err := l.AddItem(ctx, "p2", 2)
	require.NoError(t, err)
	before, err := l.Get(ctx)
	require.NoError(t, err)

	_, err = l.AddItem(ctx, "p1", 7)
	require.NoError(t, err)
	after, err := l.RemoveItem(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestSetQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("creates absent line", func(t *testing.T) {
		l := NewLedger(newCatalog())
		c, err := l.SetQuantity(ctx, "p4", 3)
		require.NoError(t, err)
		assert.Equal(t, 3, qtyOf(t, c, "p4"))
		assert.True(t, decimal.NewFromInt(597).Equal(c.Total))
	})

	t.Run("zero removes present line", func(t *testing.T) {
		l := NewLedger(newCatalog())
		_, err := l.AddItem(ctx, "p1", 2)
		require.NoError(t, err)

		c, err := l.SetQuantity(ctx, "p1", 0)
		require.NoError(t, err)
		assert.True(t, c.Empty())
		assert.Empty(t, l.Lines())
	})

	t.Run("zero is idempotent", func(t *testing.T) {
		l := NewLedger(newCatalog())
		_, err := l.AddItem(ctx, "p2", 1)
		require.NoError(t, err)

		first, err := l.SetQuantity(ctx, "p1", 0)
		require.NoError(t, err)
		second, err := l.SetQuantity(ctx, "p1", 0)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		_, err = l.SetQuantity(ctx, "not-in-catalog", 0)
		require.NoError(t, err)
	})

	t.Run("negative qty", func(t *testing.T) {
		l := NewLedger(newCatalog())
		_, err := l.SetQuantity(ctx, "p1", -1)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "qty", vErr.Field)
	})

	t.Run("unknown product with positive qty", func(t *testing.T) {
		l := NewLedger(newCatalog())
		_, err := l.SetQuantity(ctx, "nope", 2)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "productId", vErr.Field)
		assert.Empty(t, l.Lines())
	})
}

func TestInsertionOrderPreserved(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newCatalog())
	for _, id := range []string{"p4", "p1", "p2"} {
		_, err := l.AddItem(ctx, id, 1)
		require.NoError(t, err)
	}
	_, err := l.AddItem(ctx, "p4", 1)
	require.NoError(t, err)

	c, err := l.Get(ctx)
	require.NoError(t, err)
	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	assert.Equal(t, []string{"p4", "p1", "p2"}, ids)
}

func TestLedgerInvariants_MixedSequence(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newCatalog())

	ops := []func() error{
		func() error { _, err := l.AddItem(ctx, "p1", 1); return err },
		func() error { _, err := l.SetQuantity(ctx, "p2", 4); return err },
		func() error { _, err := l.AddItem(ctx, "p1", 2); return err },
		func() error { _, err := l.SetQuantity(ctx, "p1", 0); return err },
		func() error { _, err := l.SetQuantity(ctx, "p1", 0); return err },
		func() error { _, err := l.AddItem(ctx, "p4", 1); return err },
		func() error { _, err := l.RemoveItem(ctx, "p2"); return err },
		func() error { _, err := l.SetQuantity(ctx, "p4", 9); return err },
	}
	for i, op := range ops {
		require.NoError(t, op(), "op %d", i)
		assertLedgerInvariants(t, l)
	}
	assert.Equal(t, []Line{{ProductID: "p4", Qty: 9}}, l.Lines())
}

func TestDrain(t *testing.T) {
	ctx := context.Background()

	t.Run("clears on success", func(t *testing.T) {
		l := NewLedger(newCatalog())
		_, err := l.AddItem(ctx, "p1", 1)
		require.NoError(t, err)

		var got PricedCart
		err = l.Drain(ctx, func(snapshot PricedCart) error {
			got = snapshot
			return nil
		})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(799).Equal(got.Total))
		assert.Empty(t, l.Lines())
	})

	t.Run("keeps cart on failure", func(t *testing.T) {
		l := NewLedger(newCatalog())
		_, err := l.AddItem(ctx, "p1", 1)
		require.NoError(t, err)

		boom := errors.New("boom")
		err = l.Drain(ctx, func(PricedCart) error { return boom })
		require.ErrorIs(t, err, boom)
		assert.Equal(t, []Line{{ProductID: "p1", Qty: 1}}, l.Lines())
	})
}

func TestConcurrentAddItem(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newCatalog())

	const n = 100
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.AddItem(ctx, "p1", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, []Line{{ProductID: "p1", Qty: n}}, l.Lines())
}
