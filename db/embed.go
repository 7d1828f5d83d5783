// Package db provides the embedded default catalog seed.
package db

import _ "embed"

// Products contains the default catalog as a JSON array of
// {"id","name","price"} objects.
//
//go:embed seed/products.json
var Products []byte
