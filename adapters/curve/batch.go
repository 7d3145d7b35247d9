package curve

import (
	"context"

	"golang.org/x/sync/errgroup"

	"assaykit/domain/assay"
	"assaykit/domain/core"
)

// StandardSet is one independent set of standards, e.g. one plate.
type StandardSet struct {
	ID     core.CurveID
	Points []assay.DataPoint
}

// BatchResult pairs a set with its fit. Err holds a per-set fit failure;
// other sets are unaffected.
type BatchResult struct {
	ID     core.CurveID
	Result assay.FitResult
	Err    error
}

// FitBatch fits every set concurrently, each with its own Fitter, running at
// most workers fits at a time. Cancellation is observed between fits; a fit
// that has started runs to completion.
func FitBatch(ctx context.Context, sets []StandardSet, opts Options, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]BatchResult, len(sets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, set := range sets {
		i, set := i, set
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := NewFitter(opts).Fit(set.Points)
			results[i] = BatchResult{ID: set.ID, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
