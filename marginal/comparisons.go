package marginal

import (
	"gonum.org/v1/gonum/mat"

	"github.com/margo-stats/margo/delta"
	"github.com/margo-stats/margo/model"
	"github.com/margo-stats/margo/pkg/errors"
	"github.com/margo-stats/margo/transform"
)

// Comparisons contrasts predictions between two counterfactual data sets
// row by row. hi and lo must have identical dimensions; build them with
// CounterfactualData or Grid. The default transform is the row-wise
// difference; ratio, lnratio, dydx and their averaged or grouped variants
// are selected with WithTransform. The dydx kinds additionally need the
// contrast step via WithStep.
func Comparisons(m model.Adapter, hi, lo mat.Matrix, opts ...Option) ([]delta.Record, error) {
	cfg := newConfig(opts)

	kind := cfg.kind
	if kind == "" {
		kind = transform.Difference
	}
	if !kind.Valid() || !kind.NeedsBaseline() {
		return nil, errors.NewValidationError("transform", "Comparisons needs a paired transform kind", string(kind))
	}

	hr, hc := hi.Dims()
	lr, lc := lo.Dims()
	if hr == 0 {
		return nil, errors.ErrEmptyData
	}
	if hr != lr || hc != lc {
		return nil, errors.NewDimensionError("marginal.Comparisons", hr, lr, 0)
	}
	keys := groupKeys(cfg, kind)
	if keys != nil && len(keys) != hr {
		return nil, errors.NewDimensionError("marginal.Comparisons", hr, len(keys), 0)
	}

	f := func(coefs []float64) ([]float64, error) {
		ph, err := m.Predict(coefs, hi)
		if err != nil {
			return nil, err
		}
		pl, err := m.Predict(coefs, lo)
		if err != nil {
			return nil, err
		}
		if keys != nil {
			vals, _, err := transform.ApplyGrouped(kind, ph, pl, cfg.step, keys)
			return vals, err
		}
		return transform.Apply(kind, ph, pl, cfg.step)
	}

	labels, groups := quantityLabels(string(kind), hr, kind.Averaged(), keys)
	return run("marginal.Comparisons", m, f, labels, groups, cfg)
}
