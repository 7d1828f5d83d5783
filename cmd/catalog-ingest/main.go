// Command catalog-ingest merges newline-delimited JSON product dumps into a
// catalog seed file that the API server can load with VIBE_CATALOG_FILE.
//
// Inputs and output may be gzip-compressed (".gz" suffix). Every record is
// validated and product ids must be unique across all inputs.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vibe-commerce/internal/domain/product"
	"github.com/xenking/vibe-commerce/internal/storage/memory"
	"github.com/xenking/vibe-commerce/internal/storage/seed"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	maxLineBytes  = 1 << 20
	progressEvery = 100_000
)

// fileResult holds the products decoded from one input file in file order.
type fileResult struct {
	products []product.Product
	ids      *bloom.BloomFilter
	// candidates are ids the filter had already seen within this file.
	candidates map[string]struct{}
}

func main() {
	var out string
	flag.StringVar(&out, "out", "catalog.json.gz", "output seed file (.json or .json.gz)")
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-out file] dump.ndjson[.gz]...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	n, err := run(ctx, flag.Args(), out)
	if err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully",
		slog.String("out", out),
		slog.Int("products", n),
	)
}

func run(ctx context.Context, inputs []string, out string) (int, error) {
	slog.Info("reading product dumps", slog.Int("files", len(inputs)))

	results, err := readAll(ctx, inputs)
	if err != nil {
		return 0, errors.Wrap(err, "read inputs")
	}

	if err := checkDuplicates(inputs, results); err != nil {
		return 0, err
	}

	var products []product.Product
	for _, r := range results {
		products = append(products, r.products...)
	}

	// NewCatalog applies the same validation the server does on startup.
	if _, err := memory.NewCatalog(products); err != nil {
		return 0, errors.Wrap(err, "validate catalog")
	}

	if err := seed.WriteFile(out, products); err != nil {
		return 0, errors.Wrap(err, "write catalog")
	}
	return len(products), nil
}

// readAll decodes every input concurrently, one goroutine per file.
func readAll(ctx context.Context, inputs []string) ([]fileResult, error) {
	results := make([]fileResult, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range inputs {
		g.Go(func() error {
			r, err := readFile(ctx, path)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func readFile(ctx context.Context, path string) (fileResult, error) {
	r := fileResult{
		ids:        bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		candidates: make(map[string]struct{}),
	}

	if err := streamLines(ctx, path, func(line int, data []byte) error {
		p, err := seed.DecodeLine(data)
		if err != nil {
			return errors.Wrapf(err, "%s:%d", path, line)
		}
		if r.ids.TestAndAddString(p.ID) {
			r.candidates[p.ID] = struct{}{}
		}
		r.products = append(r.products, p)

		if len(r.products)%progressEvery == 0 {
			slog.Info("read progress",
				slog.String("file", path),
				slog.Int("products", len(r.products)),
			)
		}
		return nil
	}); err != nil {
		return fileResult{}, err
	}

	slog.Info("file complete",
		slog.String("file", path),
		slog.Int("products", len(r.products)),
	)
	return r, nil
}

// checkDuplicates uses the per-file bloom filters to find ids that may occur
// more than once and confirms them with an exact count.
func checkDuplicates(inputs []string, results []fileResult) error {
	candidates := make(map[string]struct{})
	for i, r := range results {
		for id := range r.candidates {
			candidates[id] = struct{}{}
		}
		for _, p := range r.products {
			for j, other := range results {
				if j != i && other.ids.TestString(p.ID) {
					candidates[p.ID] = struct{}{}
					break
				}
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	seen := make(map[string]string, len(candidates))
	for i, r := range results {
		for _, p := range r.products {
			if _, ok := candidates[p.ID]; !ok {
				continue
			}
			if first, dup := seen[p.ID]; dup {
				return errors.Errorf("duplicate product id %q in %s (first seen in %s)", p.ID, inputs[i], first)
			}
			seen[p.ID] = inputs[i]
		}
	}
	return nil
}

// streamLines opens path, transparently decompressing .gz files, and calls fn
// for each non-blank line with its 1-based line number.
func streamLines(ctx context.Context, path string, fn func(line int, data []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		data := scanner.Bytes()
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		if err := fn(line, data); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
