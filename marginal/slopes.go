package marginal

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/margo-stats/margo/delta"
	"github.com/margo-stats/margo/model"
	"github.com/margo-stats/margo/pkg/errors"
	"github.com/margo-stats/margo/transform"
)

// perturbation is one variable's centered contrast: copies of the data with
// the variable's column shifted half a step down and up, plus the per-row
// step widths.
type perturbation struct {
	name  string
	hi    *mat.Dense
	lo    *mat.Dense
	steps []float64
}

// Slopes computes partial derivatives of the prediction with respect to the
// listed variables (column indices into X) at every row, via a centered
// regressor perturbation with step stepScale * max(|x|, 1). The default
// transform is transform.DyDx (one slope per row per variable);
// transform.DyDxAvg averages slopes per variable, or per group when
// WithGroups is set.
func Slopes(m model.Adapter, X mat.Matrix, vars []int, opts ...Option) ([]delta.Record, error) {
	cfg := newConfig(opts)

	kind := cfg.kind
	if kind == "" {
		kind = transform.DyDx
	}
	if kind != transform.DyDx && kind != transform.DyDxAvg {
		return nil, errors.NewValidationError("transform", "Slopes accepts dydx transform kinds only", string(kind))
	}
	if len(vars) == 0 {
		return nil, errors.NewValidationError("vars", "at least one variable is required", len(vars))
	}
	if err := errors.CheckScalar("marginal.Slopes", cfg.stepScale); err != nil {
		return nil, err
	}
	if cfg.stepScale <= 0 {
		return nil, errors.NewValidationError("step_scale", "must be positive", cfg.stepScale)
	}

	n, c := X.Dims()
	if n == 0 {
		return nil, errors.ErrEmptyData
	}
	keys := groupKeys(cfg, kind)
	if keys != nil && len(keys) != n {
		return nil, errors.NewDimensionError("marginal.Slopes", n, len(keys), 0)
	}

	perts := make([]perturbation, len(vars))
	for i, col := range vars {
		if col < 0 || col >= c {
			return nil, errors.NewValidationError("vars", "column index out of range", col)
		}
		perts[i] = perturb(X, col, cfg.stepScale)
		perts[i].name = varLabel(cfg.varNames, i, col)
	}

	f := func(coefs []float64) ([]float64, error) {
		var out []float64
		for _, p := range perts {
			ph, err := m.Predict(coefs, p.hi)
			if err != nil {
				return nil, err
			}
			pl, err := m.Predict(coefs, p.lo)
			if err != nil {
				return nil, err
			}
			slopes := make([]float64, n)
			for i := range slopes {
				slopes[i] = (ph[i] - pl[i]) / p.steps[i]
			}
			if kind.Averaged() {
				if keys != nil {
					vals, _, err := transform.ApplyGrouped(transform.IdentityAvg, slopes, nil, 0, keys)
					if err != nil {
						return nil, err
					}
					out = append(out, vals...)
					continue
				}
				vals, err := transform.Apply(transform.IdentityAvg, slopes, nil, 0)
				if err != nil {
					return nil, err
				}
				out = append(out, vals...)
				continue
			}
			out = append(out, slopes...)
		}
		return out, nil
	}

	var labels, groups []string
	for _, p := range perts {
		ls, gs := quantityLabels(p.name, n, kind.Averaged(), keys)
		labels = append(labels, ls...)
		groups = append(groups, gs...)
	}
	if len(groups) == 0 {
		groups = nil
	}
	return run("marginal.Slopes", m, f, labels, groups, cfg)
}

// perturb builds the hi/lo pair for one column. Step widths scale with the
// magnitude of the value being perturbed, floored at the scale itself.
func perturb(X mat.Matrix, col int, scale float64) perturbation {
	n, _ := X.Dims()
	hi := mat.DenseCopyOf(X)
	lo := mat.DenseCopyOf(X)
	steps := make([]float64, n)
	for i := 0; i < n; i++ {
		x := X.At(i, col)
		h := scale * math.Max(math.Abs(x), 1)
		steps[i] = h
		hi.Set(i, col, x+h/2)
		lo.Set(i, col, x-h/2)
	}
	return perturbation{hi: hi, lo: lo, steps: steps}
}
