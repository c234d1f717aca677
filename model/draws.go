package model

import (
	"gonum.org/v1/gonum/mat"
)

// drawsAdapter decorates an Adapter with posterior coefficient draws.
type drawsAdapter struct {
	Adapter
	draws *mat.Dense
}

// WithDraws wraps an adapter so the engine treats it as a posterior-draw
// model: intervals become empirical credible intervals over the draws and
// the delta method is skipped. The draws matrix is draws-by-coefficients,
// aligned with the adapter's coefficient order.
func WithDraws(base Adapter, draws *mat.Dense) Adapter {
	return &drawsAdapter{Adapter: base, draws: draws}
}

func (d *drawsAdapter) Draws() *mat.Dense {
	return d.draws
}
