package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one algorithm in a comparison. Err holds a
// configuration error for that algorithm; the other runs still complete.
type Outcome struct {
	Algorithm Algorithm
	Response  *Response
	Cached    bool
	Err       error
}

// Compare runs every algorithm of a category on the same problem and
// parameters, at most parallel at a time (zero means unbounded). Outcomes
// are returned in the order of AlgorithmsFor.
func (r *Runner) Compare(ctx context.Context, base *Request, parallel int) ([]Outcome, error) {
	c, err := ParseCategory(base.Category)
	if err != nil {
		return nil, err
	}
	algos := AlgorithmsFor(c)
	out := make([]Outcome, len(algos))

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, a := range algos {
		req := *base
		req.Algorithm = a.Name
		g.Go(func() error {
			resp, hit, err := r.Run(gctx, &req)
			out[i] = Outcome{Algorithm: a, Response: resp, Cached: hit, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, ctx.Err()
}
