package jsonx

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ErrTrailingData is returned when input continues after a complete value.
var ErrTrailingData = errors.New("unexpected data after JSON value")

// ExpectEnd reports ErrTrailingData unless only whitespace remains in d.
func ExpectEnd(d *jx.Decoder) error {
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}
