package batch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benedictfischer09/sourcecode-verifier/internal/report"
	"github.com/benedictfischer09/sourcecode-verifier/internal/verify"
)

// Verifier produces a record for one request. Failures are folded into the
// record rather than returned.
type Verifier interface {
	Record(ctx context.Context, req verify.Request) report.Record
}

// ProgressFunc is called once per finished package. done counts finished
// packages including this one. Calls are serialized.
type ProgressFunc func(done, total int, rec report.Record)

// Runner verifies packages on a bounded pool.
type Runner struct {
	Verifier Verifier
	Workers  int
	Progress ProgressFunc
	Logger   *zap.Logger
}

// Run verifies every package and returns one record per package in input
// order. One package failing never stops the others.
func (r *Runner) Run(ctx context.Context, pkgs []Package) []report.Record {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	records := make([]report.Record, len(pkgs))
	var (
		mu   sync.Mutex
		done int
	)

	logger.Info("starting batch", zap.Int("packages", len(pkgs)), zap.Int("workers", workers))
	start := time.Now()

	// A plain Group never cancels siblings; a non-nil Wait only means some
	// packages were skipped because ctx ended.
	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range pkgs {
		g.Go(func() error {
			var rec report.Record
			skipped := ctx.Err()
			if skipped != nil {
				rec = report.Failed(p.Name, p.Version, report.Errored, skipped)
			} else {
				rec = r.Verifier.Record(ctx, verify.Request{Package: p.Name, Version: p.Version})
			}
			records[i] = rec

			mu.Lock()
			done++
			if r.Progress != nil {
				r.Progress(done, len(pkgs), rec)
			}
			mu.Unlock()
			return skipped
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("batch interrupted, remaining packages were not verified", zap.Error(err))
	}

	logger.Info("batch finished",
		zap.Int("packages", len(pkgs)),
		zap.Duration("elapsed", time.Since(start)))
	return records
}

// Passed reports whether no record shows differences.
func Passed(records []report.Record) bool {
	for _, r := range records {
		if r.Status == report.Differences {
			return false
		}
	}
	return true
}
