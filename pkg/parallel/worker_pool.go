// Package parallel runs independent work items on a bounded set of goroutines.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// PoolConfig configures the worker pool behavior.
type PoolConfig struct {
	// MaxWorkers is the maximum number of concurrent workers.
	// Default: min(runtime.NumCPU(), 8)
	MaxWorkers int
}

// DefaultPoolConfig returns a default pool configuration.
func DefaultPoolConfig() PoolConfig {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	if workers < 2 {
		workers = 2
	}
	return PoolConfig{MaxWorkers: workers}
}

// WithWorkers returns a new config with the specified number of workers.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	c.MaxWorkers = n
	return c
}

// Map applies fn to every input and returns the results in input order.
// At most config.MaxWorkers calls run at once. The first error cancels the
// remaining work and is returned; results are then discarded. A canceled ctx
// yields ctx.Err() when no task failed first.
func Map[T any, R any](ctx context.Context, config PoolConfig, inputs []T, fn func(ctx context.Context, input T) (R, error)) ([]R, error) {
	if len(inputs) == 0 {
		return []R{}, nil
	}
	if config.MaxWorkers <= 0 {
		config = DefaultPoolConfig()
	}

	results := make([]R, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.MaxWorkers)

	for idx, input := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := fn(gctx, input)
			if err != nil {
				return err
			}
			results[idx] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
