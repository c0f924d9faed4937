package prepare

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-meshprep/pkg/mesh"
)

// PrepareAll prepares independent fragments with up to workers goroutines.
// Results are indexed like frags. The first error cancels fragments that
// have not started; fragments already prepared stay prepared.
func (p *Preparer) PrepareAll(ctx context.Context, frags []*mesh.Fragment, workers int, done func(int)) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(frags))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range frags {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := p.Prepare(f)
			if err != nil {
				return err
			}
			results[i] = res
			if done != nil {
				done(i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
