// Package memory provides process-memory implementations of the catalog and
// the receipt log.
package memory

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/vibe-commerce/internal/domain/product"
)

var _ product.Catalog = (*Catalog)(nil)

// Catalog is a read-only product.Catalog that keeps products in seed order.
type Catalog struct {
	products []product.Product
	byID     map[string]int
}

// NewCatalog validates products and returns a Catalog over a private copy.
func NewCatalog(products []product.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]product.Product, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range products {
		switch {
		case p.ID == "":
			return nil, errors.Errorf("product #%d: empty id", i)
		case p.Name == "":
			return nil, errors.Errorf("product %q: empty name", p.ID)
		case p.Price.IsNegative():
			return nil, errors.Errorf("product %q: negative price %s", p.ID, p.Price)
		case !p.Price.IsInteger():
			return nil, errors.Errorf("product %q: price %s is not a whole amount", p.ID, p.Price)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, errors.Errorf("product %q: duplicate id", p.ID)
		}
		c.byID[p.ID] = i
		c.products[i] = p
	}
	return c, nil
}

// List returns all products in seed order.
func (c *Catalog) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, len(c.products))
	copy(out, c.products)
	return out, nil
}

// GetByID returns a single product by its identifier.
func (c *Catalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p := c.products[i]
	return &p, nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}
