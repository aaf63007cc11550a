package herm

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// ParallelMap calls fn(ctx, i) for i in [0, n) on at most workers goroutines
// (GOMAXPROCS if workers <= 0). The first error cancels ctx and is returned.
func ParallelMap(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, i)
		})
	}
	return g.Wait()
}

// chunks splits [0, n) into at most parts contiguous ranges.
func chunks(n, parts int) [][2]int {
	if parts <= 0 {
		parts = runtime.GOMAXPROCS(0)
	}
	if parts > n {
		parts = n
	}
	out := make([][2]int, 0, parts)
	for k := 0; k < parts; k++ {
		out = append(out, [2]int{k * n / parts, (k + 1) * n / parts})
	}
	return out
}

// HeliocentricDistancesParallel splits epochs between workers, each loading
// its own kernel handle.
func (e *Ephemeris) HeliocentricDistancesParallel(ctx context.Context, epochs []time.Time, workers int) ([]float64, error) {
	defer e.metrics.observeBatch("heliocentric_distances", time.Now())
	out := make([]float64, len(epochs))
	parts := chunks(len(epochs), workers)
	err := ParallelMap(ctx, len(parts), workers, func(ctx context.Context, k int) error {
		lo, hi := parts[k][0], parts[k][1]
		return e.Session(func(s *Session) error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				r, err := s.HeliocentricDistance(epochs[i])
				if err != nil {
					return err
				}
				out[i] = r
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
