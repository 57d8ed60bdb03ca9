// scan.go — Check many images for watermarks concurrently.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/xob0t/GoStego/internal/config"
	"github.com/xob0t/GoStego/pkg/imageio"
	"github.com/xob0t/GoStego/pkg/watermark"
)

type scanResult struct {
	path   string
	status string
	text   string
	err    error // load failure
}

func runScan(cfg *config.C, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)

	var (
		password string
		workers  int
	)
	fs.StringVar(&password, "p", "", "Password tried on encrypted watermarks")
	fs.IntVar(&workers, "j", cfg.Workers, "Concurrent files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	paths := fs.Args()
	if len(paths) == 0 {
		return fmt.Errorf("no images given")
	}

	results, firstErr := scanFiles(paths, password, workers, cfg.MaxFileSize)

	failed := 0
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			fmt.Fprintf(w, "%s: error: %v\n", r.path, r.err)
		case r.text != "":
			fmt.Fprintf(w, "%s: %s: %s\n", r.path, r.status, r.text)
		default:
			fmt.Fprintf(w, "%s: %s\n", r.path, r.status)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be read: %w", failed, len(results), firstErr)
	}
	return nil
}

// scanFiles loads and inspects each path with at most workers files in
// flight. Results are in the order of paths. A file that cannot be read does
// not stop the others; the first such error is returned alongside.
func scanFiles(paths []string, password string, workers int, maxSize int64) ([]scanResult, error) {
	results := make([]scanResult, len(paths))

	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i] = scanFile(path, password, maxSize)
			return results[i].err
		})
	}
	err := g.Wait()

	return results, err
}

func scanFile(path, password string, maxSize int64) scanResult {
	r := scanResult{path: path}

	img, _, err := imageio.Load(path, maxSize)
	if err != nil {
		r.err = err
		return r
	}
	log.Debugf("scanning %s", path)

	res, err := watermark.Extract(img.Pix, password)
	switch {
	case err == nil && res.Encrypted:
		r.status, r.text = "encrypted", res.Message
	case err == nil:
		r.status, r.text = "plain", res.Message
	case errors.Is(err, watermark.ErrPasswordRequired):
		r.status = "encrypted (password required)"
	case errors.Is(err, watermark.ErrWrongPassword):
		r.status = "encrypted (wrong password)"
	case errors.Is(err, watermark.ErrInvalidEnvelopeFormat):
		r.status = "malformed encrypted watermark"
	default:
		r.status = "no watermark"
	}
	return r
}
