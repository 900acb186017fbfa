package queue

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchRunner runs indexed jobs in fixed-size batches. Every batch is a join
// point: the next batch starts only after all members of the current one
// returned.
type BatchRunner struct {
	Size int
}

func NewBatchRunner(size int) *BatchRunner {
	if size < 1 {
		size = 1
	}
	return &BatchRunner{Size: size}
}

// Run calls job(ctx, i) for i in [0, n). before runs ahead of every batch and
// stops the run when it returns an error. A failing job never cancels its
// siblings, but its error ends the run once the batch has joined; jobs keep
// recoverable per-item failures to themselves and return nil.
func (r *BatchRunner) Run(ctx context.Context, n int, before func(ctx context.Context) error, job func(ctx context.Context, i int) error) error {
	for start := 0; start < n; start += r.Size {
		if err := ctx.Err(); err != nil {
			return err
		}
		if before != nil {
			if err := before(ctx); err != nil {
				return err
			}
		}

		end := start + r.Size
		if end > n {
			end = n
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				return job(ctx, i)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return ctx.Err()
}
