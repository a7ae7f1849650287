package sim

import (
	"context"

	"github.com/san-kum/celestial/internal/physics"
	"golang.org/x/sync/errgroup"
)

// Ensemble runs one initial state under several configurations
// concurrently. Each run works on its own copy of the bodies.
type Ensemble struct {
	newIntegrator func() *Integrator
	limit         int
}

// NewEnsemble uses factory for each run so metrics are never shared. A nil
// factory gives bare integrators. limit caps concurrent runs; zero or less
// means no cap.
func NewEnsemble(factory func() *Integrator, limit int) *Ensemble {
	if factory == nil {
		factory = New
	}
	return &Ensemble{newIntegrator: factory, limit: limit}
}

// Run returns the results in cfgs order. The first failing run cancels the
// rest and its error is returned.
func (e *Ensemble) Run(ctx context.Context, initial []physics.Body, cfgs []Config) ([]*Result, error) {
	results := make([]*Result, len(cfgs))
	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	for i, cfg := range cfgs {
		g.Go(func() error {
			res, err := e.newIntegrator().Run(ctx, physics.Clone(initial), cfg)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
