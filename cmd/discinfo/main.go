// Command discinfo probes disc images and prints their container format,
// block geometry, and logical size.
//
// Usage:
//
//	discinfo [--digest] [--no-gzip] image...
//
// Images are probed against every supported container format; files no
// format recognizes are reported as flat images. Gzip-compressed inputs
// are decompressed transparently.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/discio/discio"
	"github.com/discio/discio/disc"
)

func main() {
	var (
		withDigest = flag.Bool("digest", false, "compute the logical image digest")
		noGzip     = flag.Bool("no-gzip", false, "disable transparent gzip decompression")
		workers    = flag.Int("workers", 4, "images probed concurrently")
		verbose    = flag.BoolP("verbose", "v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: discinfo [flags] image...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	mode := discio.ModeRead
	if !*noGzip {
		mode |= discio.ModeGzip
	}

	var (
		out sync.Mutex
		g   errgroup.Group
	)
	g.SetLimit(*workers)
	for _, path := range paths {
		g.Go(func() error {
			info, err := inspect(path, mode, *withDigest, logger)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			out.Lock()
			defer out.Unlock()
			fmt.Print(info)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("probe failed", "error", err)
		os.Exit(1)
	}
}

func inspect(path string, mode discio.Mode, withDigest bool, logger *slog.Logger) (string, error) {
	f, err := discio.OpenFile(path, mode)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var (
		img    discio.File = f
		format             = "flat"
		extra  string
	)
	if r, err := disc.Open(f); err == nil {
		defer r.Close()
		img = r
		format = r.Format()
		extra = fmt.Sprintf("  blocks: %d x %#x bytes\n", r.BlockCount(), r.BlockSize())
	} else if !errors.Is(err, disc.ErrUnknownFormat) {
		return "", err
	}
	logger.Debug("probed image", "path", path, "format", format)

	size, err := img.Size()
	if err != nil {
		return "", err
	}

	info := fmt.Sprintf("%s\n  format: %s\n", path, format)
	if f.IsCompressed() {
		info += "  container: gzip\n"
	}
	info += extra
	info += fmt.Sprintf("  size: %d bytes\n", size)

	if withDigest {
		dgst, err := discio.Checksum(img)
		if err != nil {
			return "", err
		}
		info += fmt.Sprintf("  digest: %s\n", dgst)
	}
	return info, nil
}
