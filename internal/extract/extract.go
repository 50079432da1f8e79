// Package extract drives decoding of an archive and hands every file to a
// sink on a bounded pool of writers.
package extract

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/ossyrian/unwx/internal/parser"
	"github.com/ossyrian/unwx/internal/sink"
	"github.com/ossyrian/unwx/internal/wxapkg"
)

// Options configures a Run.
type Options struct {
	// Workers bounds concurrent sink writes. Zero or less means NumCPU.
	Workers int
	Logger  *slog.Logger
}

// Stats summarizes a Run.
type Stats struct {
	Files        int   // entries decoded and dispatched
	Bytes        int64 // total size of dispatched entries
	FailedWrites int
	Elapsed      time.Duration
}

// Run decodes archive in table order and writes each file to dst.
//
// Decoding is sequential; entry i is decoded before its write is queued.
// Writes run concurrently and complete in no particular order. A failed write
// does not stop the others, and all write errors are returned together once
// every write has finished. A decode error stops dispatching at once, waits
// for writes already queued and is returned ahead of any write errors.
func Run(archive *wxapkg.Archive, dst sink.Sink, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	var stats Stats

	d, err := parser.NewDecoder(archive, logger)
	if err != nil {
		return stats, err
	}

	var failed atomic.Int64
	p := pool.New().WithMaxGoroutines(workers).WithErrors()

	var decodeErr error
	for {
		f, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			decodeErr = err
			break
		}

		stats.Files++
		stats.Bytes += int64(len(f.Data))

		p.Go(func() error {
			if err := dst.WriteEntry(f.Name, f.Data); err != nil {
				failed.Add(1)
				logger.Error("failed to write file", "entry", f.Index, "name", f.Name, "error", err)
				return err
			}
			logger.Debug("wrote file", "entry", f.Index, "name", f.Name, "size", len(f.Data))
			return nil
		})
	}

	// the archive buffer stays referenced until every queued write returns
	writeErr := p.Wait()

	stats.FailedWrites = int(failed.Load())
	stats.Elapsed = time.Since(start)

	if decodeErr != nil {
		return stats, errors.Join(fmt.Errorf("failed to decode archive: %w", decodeErr), writeErr)
	}
	if writeErr != nil {
		return stats, fmt.Errorf("%d of %d files failed to write: %w", stats.FailedWrites, stats.Files, writeErr)
	}

	logger.Info("extracted archive",
		"files", stats.Files,
		"bytes", stats.Bytes,
		"elapsed", stats.Elapsed,
	)

	return stats, nil
}
