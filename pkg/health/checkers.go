package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running,
// which usually means a leak.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// NonEmptyCheck fails while size reports zero, e.g. before a catalog is
// loaded.
func NonEmptyCheck(what string, size func() int) CheckFunc {
	return func(context.Context) error {
		if size() == 0 {
			return errors.Errorf("%s is empty", what)
		}
		return nil
	}
}
