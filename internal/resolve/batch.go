package resolve

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one request in a batch.
type Result struct {
	Request Request
	Outcome Outcome
	Err     error
}

// ResolveAll resolves independent requests concurrently, at most limit at a
// time (GOMAXPROCS when limit <= 0). Results are in request order. A broken
// request only fails its own slot; cancelling ctx stops requests that have
// not started yet, whose slots carry ctx.Err().
func ResolveAll(ctx context.Context, r *Resolver, reqs []Request, limit int) []Result {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range reqs {
		results[i].Request = req
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			out, err := r.Resolve(req)
			results[i].Outcome = out
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are per slot

	return results
}
