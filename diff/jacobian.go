// Package diff computes Jacobians of vector-valued functions of a model's
// coefficient vector by central finite differences.
//
// This is the engine behind every delta-method standard error in margo: the
// function being differentiated is the whole prediction-plus-transform
// pipeline, so each of the 2*P evaluations re-runs model predictions over
// the full dataset. Columns are independent and can be evaluated in
// parallel, but the default is sequential because prediction callbacks
// supplied by model adapters are not guaranteed to be reentrant.
package diff

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/margo-stats/margo/pkg/errors"
)

// Func is a coefficient-parametrized quantity function: it maps a
// coefficient vector to the vector of quantities of interest. It must be
// pure, must not mutate its argument, and must return the same output length
// for every input of the same length.
type Func func(coefs []float64) ([]float64, error)

// Options configures a Jacobian computation.
type Options struct {
	// Workers bounds the number of concurrent perturbation evaluations.
	// Values below 2 run sequentially, which is the safe default for
	// non-reentrant prediction callbacks.
	Workers int

	// Lenient controls the failure policy for perturbed evaluations. When
	// false (the default), the first failed perturbation aborts the whole
	// computation with an EvaluationError. When true, the failing
	// coefficient's column is filled with NaN, a JacobianColumnWarning is
	// emitted, and the computation continues. A failure at the base point
	// is always fatal regardless of this setting, and so is a perturbed
	// evaluation whose output length differs from the base evaluation's:
	// that is a broken quantity function, not a numeric failure.
	Lenient bool

	// CoefNames labels coefficients in errors and warnings. Optional; when
	// shorter than the coefficient vector, positional names are used.
	CoefNames []string
}

// epsFloor keeps the relative step away from zero for coefficients at or
// near zero.
const epsFloor = 1e-8

// sqrtEps is sqrt(machine epsilon) for float64.
var sqrtEps = math.Sqrt(2.220446049250313e-16)

// Step returns the central-difference step for a coefficient value:
// max(|x|, epsFloor) * sqrt(machine epsilon).
func Step(x float64) float64 {
	return math.Max(math.Abs(x), epsFloor) * sqrtEps
}

// Jacobian computes the K-by-P matrix of partial derivatives of f at x0,
// where K is the output length of f and P is len(x0). Column i is the
// symmetric difference (f(x0+h_i e_i) - f(x0-h_i e_i)) / (2 h_i).
//
// f is evaluated once at x0 to establish the output length; a failure there
// is fatal (EvaluationError at "base"). See Options.Lenient for the
// perturbed-evaluation failure policy.
func Jacobian(f Func, x0 []float64, opts Options) (*mat.Dense, error) {
	p := len(x0)
	if p == 0 {
		return nil, errors.NewValueError("diff.Jacobian", "empty coefficient vector")
	}

	base, err := safeEval(f, x0)
	if err != nil {
		return nil, errors.NewEvaluationError("diff.Jacobian", "base", err)
	}
	k := len(base)
	if k == 0 {
		return nil, errors.NewValueError("diff.Jacobian", "quantity function returned no values")
	}

	jac := mat.NewDense(k, p, nil)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(workers)

	for i := 0; i < p; i++ {
		g.Go(func() error {
			col, err := column(f, x0, i, k)
			if err != nil {
				var dim *errors.DimensionError
				if !opts.Lenient || errors.As(err, &dim) {
					return errors.NewEvaluationError("diff.Jacobian", coefName(opts.CoefNames, i), err)
				}
				errors.Warn(errors.NewJacobianColumnWarning(coefName(opts.CoefNames, i), i, err))
				for r := 0; r < k; r++ {
					jac.Set(r, i, math.NaN())
				}
				return nil
			}
			for r := 0; r < k; r++ {
				jac.Set(r, i, col[r])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jac, nil
}

// Gradient computes the length-P derivative vector of a scalar function at
// x0. It is Jacobian specialized to K == 1, used by the hypothesis resolver
// to chain-rule non-linear combinations of estimates.
func Gradient(f func(x []float64) (float64, error), x0 []float64, opts Options) ([]float64, error) {
	vec := func(coefs []float64) ([]float64, error) {
		v, err := f(coefs)
		if err != nil {
			return nil, err
		}
		return []float64{v}, nil
	}
	jac, err := Jacobian(vec, x0, opts)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(x0))
	mat.Row(out, 0, jac)
	return out, nil
}

// column evaluates one symmetric-difference column. Each perturbation works
// on a private copy of x0, so f never observes a mutated shared vector.
func column(f Func, x0 []float64, i, k int) ([]float64, error) {
	h := Step(x0[i])

	xp := make([]float64, len(x0))
	copy(xp, x0)
	xp[i] += h
	fp, err := safeEval(f, xp)
	if err != nil {
		return nil, err
	}

	xm := make([]float64, len(x0))
	copy(xm, x0)
	xm[i] -= h
	fm, err := safeEval(f, xm)
	if err != nil {
		return nil, err
	}

	if len(fp) != k || len(fm) != k {
		return nil, errors.NewDimensionError("diff.Jacobian", k, len(fp), 0)
	}

	col := make([]float64, k)
	for r := 0; r < k; r++ {
		col[r] = (fp[r] - fm[r]) / (2 * h)
	}
	return col, nil
}

// safeEval runs f with panic recovery so a crashing model adapter surfaces
// as an error instead of taking down the caller.
func safeEval(f Func, x []float64) (out []float64, err error) {
	err = errors.SafeExecute("quantity evaluation", func() error {
		var inner error
		out, inner = f(x)
		return inner
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func coefName(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return fmt.Sprintf("coef[%d]", i)
}
