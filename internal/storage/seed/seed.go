// Package seed reads and writes catalog seed files: a JSON array of
// {"id","name","price"} objects, optionally gzip-compressed.
package seed

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/vibe-commerce/db"
	"github.com/xenking/vibe-commerce/internal/domain/product"
	"github.com/xenking/vibe-commerce/internal/jsonx"
)

const readBufSize = 4096

// Default returns the embedded catalog.
func Default() ([]product.Product, error) {
	return Decode(bytes.NewReader(db.Products))
}

// Open loads a seed file. Files ending in .gz are decompressed.
func Open(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	products, err := Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return products, nil
}

// Decode parses a JSON array of products.
func Decode(r io.Reader) ([]product.Product, error) {
	var products []product.Product
	d := jx.Decode(r, readBufSize)
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := DecodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product #%d", len(products))
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := jsonx.ExpectEnd(d); err != nil {
		return nil, err
	}
	return products, nil
}

// DecodeLine decodes one newline-delimited record holding exactly one
// product object.
func DecodeLine(data []byte) (product.Product, error) {
	d := jx.DecodeBytes(data)
	p, err := DecodeProduct(d)
	if err != nil {
		return product.Product{}, err
	}
	if err := jsonx.ExpectEnd(d); err != nil {
		return product.Product{}, err
	}
	return p, nil
}

// DecodeProduct reads a single product object. Unknown fields are skipped;
// id, name and price are required.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	var (
		p        product.Product
		hasPrice bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodePrice(d)
			hasPrice = true
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	}); err != nil {
		return product.Product{}, err
	}

	switch {
	case p.ID == "":
		return product.Product{}, errors.New("missing id")
	case p.Name == "":
		return product.Product{}, errors.Errorf("product %q: missing name", p.ID)
	case !hasPrice:
		return product.Product{}, errors.Errorf("product %q: missing price", p.ID)
	}
	return p, nil
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() != jx.Number {
		return decimal.Decimal{}, errors.New("must be a number")
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	price, err := jsonx.Decimal(n)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if price.IsNegative() || !price.IsInteger() {
		return decimal.Decimal{}, errors.Errorf("%s is not a non-negative whole amount", price)
	}
	return price, nil
}

// Encode writes products as a compact JSON array.
func Encode(w io.Writer, products []product.Product) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ArrStart()
	for _, p := range products {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(p.ID)
		e.FieldStart("name")
		e.Str(p.Name)
		e.FieldStart("price")
		e.Num(jx.Num(p.Price.String()))
		e.ObjEnd()
	}
	e.ArrEnd()

	_, err := w.Write(e.Bytes())
	return err
}

// WriteFile writes products to path, gzip-compressing when path ends in .gz.
func WriteFile(path string, products []product.Product) (rerr error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrapf(err, "close %s", path)
		}
	}()

	if !strings.HasSuffix(path, ".gz") {
		return Encode(f, products)
	}

	gz := pgzip.NewWriter(f)
	if err := Encode(gz, products); err != nil {
		_ = gz.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := gz.Close(); err != nil {
		return errors.Wrapf(err, "flush %s", path)
	}
	return nil
}
