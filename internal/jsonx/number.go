// Package jsonx holds jx decoding helpers shared by request and seed decoders.
package jsonx

import (
	"bytes"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const (
	// MaxLen bounds the literal length in bytes.
	MaxLen = 40
	// MaxExp bounds the absolute value of the exponent part.
	MaxExp = 20
)

// ErrOutOfRange is returned for literals exceeding MaxLen or MaxExp.
var ErrOutOfRange = errors.New("number out of range")

// Decimal parses n, rejecting oversized literals with ErrOutOfRange before
// any decimal math runs. Parsing and comparing a decimal costs time
// proportional to its exponent, so "1e200000000" must never reach it.
func Decimal(n jx.Num) (decimal.Decimal, error) {
	if len(n) > MaxLen {
		return decimal.Decimal{}, ErrOutOfRange
	}
	if i := bytes.IndexAny(n, "eE"); i >= 0 {
		exp, err := strconv.Atoi(string(n[i+1:]))
		if err != nil || exp > MaxExp || exp < -MaxExp {
			return decimal.Decimal{}, ErrOutOfRange
		}
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "parse number")
	}
	return d, nil
}
