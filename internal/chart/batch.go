package chart

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/vedika/internal/models"
)

// Request is one entry of a batch.
type Request struct {
	Birth    models.BirthMoment
	Settings Settings
}

// Result pairs a batch entry with its outcome. Exactly one of Chart and Err is set.
type Result struct {
	Chart *Chart
	Err   error
}

// ComputeBatch computes independent charts in parallel, at most the configured
// concurrency at a time. Results keep the order of reqs; one failure does not stop
// the others.
func (c *Calculator) ComputeBatch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			chart, err := c.Compute(ctx, req.Birth, req.Settings)
			results[i] = Result{Chart: chart, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
