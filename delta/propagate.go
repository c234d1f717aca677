package delta

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/margo-stats/margo/pkg/errors"
)

// referenceDist abstracts the Student-t / normal choice for inference.
type referenceDist interface {
	CDF(x float64) float64
	Quantile(p float64) float64
}

// newReference returns the inferential reference distribution for the given
// residual degrees of freedom. A non-finite df selects the standard normal.
func newReference(df float64) referenceDist {
	if math.IsInf(df, 1) || math.IsNaN(df) {
		return distuv.Normal{Mu: 0, Sigma: 1}
	}
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
}

// Propagate applies the delta method: for each quantity k it computes
// Var_k = J_k Sigma J_k', a standard error, a test statistic against the
// corresponding null, a two-sided p-value and a symmetric confidence
// interval using a Student-t reference when df is finite and a normal
// reference otherwise.
//
// jac must be KxP where K = len(estimates) and P = sigma's order. groups
// may be nil; when present it must have K entries. A negative or non-finite
// variance yields NaN standard error, statistic and bounds for that row
// plus a warning, never an error. An exactly-zero variance is a quantity
// constant in the coefficients and carries through as a standard error of
// zero with a collapsed interval. sigma itself must be finite.
func Propagate(estimates []float64, labels []string, nulls []float64, groups []string, jac *mat.Dense, sigma *mat.SymDense, df float64, opts Options) ([]Record, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	k := len(estimates)
	jr, jc := jac.Dims()
	if jr != k {
		return nil, errors.NewDimensionError("delta.Propagate", k, jr, 0)
	}
	if p := sigma.SymmetricDim(); p != jc {
		return nil, errors.NewDimensionError("delta.Propagate", jc, p, 1)
	}
	if err := errors.CheckMatrix("delta.Propagate", sigma, jc, jc); err != nil {
		return nil, err
	}
	if len(labels) != k {
		return nil, errors.NewDimensionError("delta.Propagate", k, len(labels), 0)
	}
	if len(nulls) != k {
		return nil, errors.NewDimensionError("delta.Propagate", k, len(nulls), 0)
	}
	if groups != nil && len(groups) != k {
		return nil, errors.NewDimensionError("delta.Propagate", k, len(groups), 0)
	}

	dist := newReference(df)
	alpha := 1 - opts.ConfLevel
	crit := dist.Quantile(1 - alpha/2)

	records := make([]Record, k)
	row := mat.NewVecDense(jc, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < jc; j++ {
			row.SetVec(j, jac.At(i, j))
		}
		variance := mat.Inner(row, sigma, row)

		rec := Record{
			Term:     labels[i],
			Estimate: estimates[i],
			Null:     nulls[i],
			DF:       df,
		}
		if groups != nil {
			rec.Group = groups[i]
		}
		if variance < 0 || math.IsNaN(variance) || math.IsInf(variance, 0) {
			errors.Warn(errors.NewDegenerateVarianceWarning(labels[i], i, variance))
			rec.StdErr = math.NaN()
			rec.Statistic = math.NaN()
			rec.PValue = math.NaN()
			rec.ConfLow = math.NaN()
			rec.ConfHigh = math.NaN()
		} else {
			se := math.Sqrt(variance)
			stat := (estimates[i] - nulls[i]) / se
			rec.StdErr = se
			rec.Statistic = stat
			rec.PValue = 2 * dist.CDF(-math.Abs(stat))
			rec.ConfLow = estimates[i] - crit*se
			rec.ConfHigh = estimates[i] + crit*se
		}
		records[i] = rec
	}

	if opts.Post != nil {
		applyPost(records, opts.Post)
	}
	return records, nil
}

// applyPost maps estimates and interval bounds through the post transform.
// Standard errors, statistics and p-values are left on the original scale.
func applyPost(records []Record, post func(float64) float64) {
	for i := range records {
		records[i].Estimate = post(records[i].Estimate)
		records[i].ConfLow = post(records[i].ConfLow)
		records[i].ConfHigh = post(records[i].ConfHigh)
	}
}
