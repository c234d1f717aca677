// Package transform turns raw model predictions into the quantities of
// interest whose uncertainty the engine measures.
//
// A pre-transform operates row-wise on a treatment prediction vector hi and
// a baseline vector lo (absent for plain predictions): differences, ratios,
// log-ratios, finite-difference slopes, and their averaged or group-averaged
// variants. Every transform is a pure function, because the differentiation
// engine re-evaluates the whole prediction-plus-transform pipeline at
// perturbed coefficient vectors.
//
// Averaging happens inside the transform, before differentiation, so the
// Jacobian of an averaged quantity is the derivative of the average rather
// than an average of per-row standard errors.
package transform

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/margo-stats/margo/pkg/errors"
)

// Kind names a pre-transform.
type Kind string

const (
	// Identity passes hi through unchanged: one quantity per row.
	Identity Kind = "identity"
	// IdentityAvg is the mean of hi: adjusted predictions averaged over rows.
	IdentityAvg Kind = "identityavg"

	// Difference is hi - lo per row.
	Difference Kind = "difference"
	// DifferenceAvg is mean(hi - lo).
	DifferenceAvg Kind = "differenceavg"

	// Ratio is hi / lo per row.
	Ratio Kind = "ratio"
	// RatioAvg is mean(hi) / mean(lo).
	RatioAvg Kind = "ratioavg"

	// LnRatio is log(hi / lo) per row. Non-positive ratios clamp to the
	// log floor instead of producing NaN.
	LnRatio Kind = "lnratio"
	// LnRatioAvg is mean(log(hi / lo)).
	LnRatioAvg Kind = "lnratioavg"

	// DyDx is (hi - lo) / step per row, the central-difference slope with
	// respect to a perturbed regressor.
	DyDx Kind = "dydx"
	// DyDxAvg is the average slope over rows.
	DyDxAvg Kind = "dydxavg"
)

// Valid reports whether k names a known transform.
func (k Kind) Valid() bool {
	switch k {
	case Identity, IdentityAvg, Difference, DifferenceAvg, Ratio, RatioAvg,
		LnRatio, LnRatioAvg, DyDx, DyDxAvg:
		return true
	}
	return false
}

// Averaged reports whether k collapses rows into a single value (or one
// value per group when a grouping key is supplied).
func (k Kind) Averaged() bool {
	switch k {
	case IdentityAvg, DifferenceAvg, RatioAvg, LnRatioAvg, DyDxAvg:
		return true
	}
	return false
}

// NeedsBaseline reports whether k requires a lo vector.
func (k Kind) NeedsBaseline() bool {
	switch k {
	case Identity, IdentityAvg:
		return false
	}
	return true
}

// Apply computes the quantity vector for kind k. lo may be nil for the
// identity kinds; step is consumed only by the DyDx kinds and must be
// non-zero there.
func Apply(k Kind, hi, lo []float64, step float64) ([]float64, error) {
	if !k.Valid() {
		return nil, errors.NewValidationError("transform", "unknown transform kind", string(k))
	}
	if len(hi) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "transform.Apply")
	}
	if k.NeedsBaseline() {
		if lo == nil {
			return nil, errors.NewValueError("transform.Apply", "transform "+string(k)+" requires a baseline prediction vector")
		}
		if len(lo) != len(hi) {
			return nil, errors.NewDimensionError("transform.Apply", len(hi), len(lo), 0)
		}
	}
	if (k == DyDx || k == DyDxAvg) && step == 0 {
		return nil, errors.NewValueError("transform.Apply", "dydx transforms require a non-zero regressor step")
	}

	switch k {
	case Identity:
		out := make([]float64, len(hi))
		copy(out, hi)
		return out, nil
	case IdentityAvg:
		return []float64{stat.Mean(hi, nil)}, nil
	case Difference:
		out := make([]float64, len(hi))
		floats.SubTo(out, hi, lo)
		return out, nil
	case DifferenceAvg:
		out := make([]float64, len(hi))
		floats.SubTo(out, hi, lo)
		return []float64{stat.Mean(out, nil)}, nil
	case Ratio:
		return rowWise(hi, lo, func(h, l float64) float64 { return h / l }), nil
	case RatioAvg:
		return []float64{stat.Mean(hi, nil) / stat.Mean(lo, nil)}, nil
	case LnRatio:
		return rowWise(hi, lo, func(h, l float64) float64 { return errors.StabilizeLog(h / l) }), nil
	case LnRatioAvg:
		lr := rowWise(hi, lo, func(h, l float64) float64 { return errors.StabilizeLog(h / l) })
		return []float64{stat.Mean(lr, nil)}, nil
	case DyDx:
		return rowWise(hi, lo, func(h, l float64) float64 { return (h - l) / step }), nil
	case DyDxAvg:
		d := rowWise(hi, lo, func(h, l float64) float64 { return (h - l) / step })
		return []float64{stat.Mean(d, nil)}, nil
	}
	// Unreachable: Valid covers every kind.
	return nil, errors.NewValidationError("transform", "unknown transform kind", string(k))
}

func rowWise(hi, lo []float64, f func(h, l float64) float64) []float64 {
	out := make([]float64, len(hi))
	for i := range hi {
		out[i] = f(hi[i], lo[i])
	}
	return out
}
