package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll runs every runner concurrently and returns their reports in the same
// order. The first failing runner cancels the others.
func RunAll(ctx context.Context, runners []*Runner) ([]Report, error) {
	reports := make([]Report, len(runners))

	g, gctx := errgroup.WithContext(ctx)

	for i, r := range runners {
		g.Go(func() error {
			report, err := r.Run(gctx)
			reports[i] = report

			return err
		})
	}

	err := g.Wait()

	return reports, err
}
