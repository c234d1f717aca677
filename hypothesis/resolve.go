package hypothesis

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/margo-stats/margo/diff"
	"github.com/margo-stats/margo/pkg/errors"
)

// Resolution is the output of resolving a Spec against a set of estimates.
type Resolution struct {
	// Estimates holds the combined estimates, one per resolved row.
	Estimates []float64

	// Labels names each resolved row.
	Labels []string

	// Nulls holds the null value each resolved row is tested against.
	Nulls []float64

	// Jacobian maps the original parameter Jacobian through the
	// combination. Nil when Resolve was given a nil Jacobian (posterior
	// path).
	Jacobian *mat.Dense

	// Combine re-applies the resolved combination to an arbitrary vector of
	// the original estimates. The posterior path uses it to map each draw.
	Combine func(values []float64) ([]float64, error)
}

// Resolve applies a hypothesis specification to the current estimates and
// their Jacobian. A nil spec is the identity.
//
// Weight specifications are applied exactly: combined Jacobian rows are
// weighted sums of the original rows. Formulas are differentiated
// numerically with respect to the estimate vector and chain-ruled into the
// original Jacobian, which handles non-linear combinations like ratios.
func Resolve(spec Spec, estimates []float64, labels []string, jac *mat.Dense) (*Resolution, error) {
	n := len(estimates)
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "hypothesis.Resolve")
	}
	if len(labels) != n {
		return nil, errors.NewDimensionError("hypothesis.Resolve", n, len(labels), 0)
	}
	if jac != nil {
		if r, _ := jac.Dims(); r != n {
			return nil, errors.NewDimensionError("hypothesis.Resolve", n, r, 0)
		}
	}

	switch s := spec.(type) {
	case nil:
		return identityResolution(estimates, labels, jac), nil

	case Weights:
		if len(s) != n {
			return nil, errors.NewDimensionError("hypothesis.Resolve", n, len(s), 0)
		}
		w := mat.NewDense(1, n, s)
		return linearResolution(w, []string{weightLabel(s, labels)}, estimates, jac)

	case WeightMatrix:
		rows, k := s.W.Dims()
		if rows != n {
			return nil, errors.NewDimensionError("hypothesis.Resolve", n, rows, 0)
		}
		if s.Labels != nil && len(s.Labels) != k {
			return nil, errors.NewDimensionError("hypothesis.Resolve", k, len(s.Labels), 0)
		}
		// Columns are combinations; transpose into one row per combination.
		w := mat.NewDense(k, n, nil)
		w.Copy(s.W.T())
		outLabels := make([]string, k)
		for i := range outLabels {
			if s.Labels != nil {
				outLabels[i] = s.Labels[i]
			} else {
				outLabels[i] = fmt.Sprintf("H%d", i+1)
			}
		}
		return linearResolution(w, outLabels, estimates, jac)

	case Pattern:
		w, outLabels, err := patternMatrix(s, labels)
		if err != nil {
			return nil, err
		}
		return linearResolution(w, outLabels, estimates, jac)

	case Formula:
		return formulaResolution(string(s), estimates, labels, jac)

	default:
		return nil, errors.NewValidationError("hypothesis", "unknown specification type", fmt.Sprintf("%T", spec))
	}
}

func identityResolution(estimates []float64, labels []string, jac *mat.Dense) *Resolution {
	est := make([]float64, len(estimates))
	copy(est, estimates)
	labs := make([]string, len(labels))
	copy(labs, labels)
	return &Resolution{
		Estimates: est,
		Labels:    labs,
		Nulls:     make([]float64, len(estimates)),
		Jacobian:  jac,
		Combine: func(values []float64) ([]float64, error) {
			out := make([]float64, len(values))
			copy(out, values)
			return out, nil
		},
	}
}

// linearResolution applies a K-by-N weight matrix: estimates and Jacobian
// rows are both mapped through W.
func linearResolution(w *mat.Dense, labels []string, estimates []float64, jac *mat.Dense) (*Resolution, error) {
	k, n := w.Dims()

	combine := func(values []float64) ([]float64, error) {
		if len(values) != n {
			return nil, errors.NewDimensionError("hypothesis.Combine", n, len(values), 0)
		}
		out := make([]float64, k)
		v := mat.NewVecDense(n, values)
		res := mat.NewVecDense(k, out)
		res.MulVec(w, v)
		return out, nil
	}

	est, err := combine(estimates)
	if err != nil {
		return nil, err
	}

	var combined *mat.Dense
	if jac != nil {
		_, p := jac.Dims()
		combined = mat.NewDense(k, p, nil)
		combined.Mul(w, jac)
	}

	return &Resolution{
		Estimates: est,
		Labels:    labels,
		Nulls:     make([]float64, k),
		Jacobian:  combined,
		Combine:   combine,
	}, nil
}

// formulaResolution compiles a formula and produces a single resolved row.
// The derivative of the formula with respect to the estimate vector comes
// from the differentiation engine; the chain rule maps it into parameter
// space.
func formulaResolution(src string, estimates []float64, labels []string, jac *mat.Dense) (*Resolution, error) {
	table := newSymbolTable(labels)
	pf, err := parseFormula(src, table)
	if err != nil {
		return nil, err
	}

	combine := func(values []float64) ([]float64, error) {
		if len(values) != len(estimates) {
			return nil, errors.NewDimensionError("hypothesis.Combine", len(estimates), len(values), 0)
		}
		return []float64{pf.expr.eval(values)}, nil
	}

	est := pf.expr.eval(estimates)

	var combined *mat.Dense
	if jac != nil {
		grad, err := diff.Gradient(func(b []float64) (float64, error) {
			return pf.expr.eval(b), nil
		}, estimates, diff.Options{})
		if err != nil {
			return nil, err
		}
		_, p := jac.Dims()
		g := mat.NewDense(1, len(grad), grad)
		combined = mat.NewDense(1, p, nil)
		combined.Mul(g, jac)
	}

	return &Resolution{
		Estimates: []float64{est},
		Labels:    []string{pf.label},
		Nulls:     []float64{pf.null},
		Jacobian:  combined,
		Combine:   combine,
	}, nil
}

// weightLabel renders a weight vector as a readable combination label,
// like "1.0*x1 - 0.5*x3".
func weightLabel(w Weights, labels []string) string {
	out := ""
	for i, wi := range w {
		if wi == 0 {
			continue
		}
		term := fmt.Sprintf("%g*%s", wi, labelAt(labels, i))
		if out == "" {
			out = term
			continue
		}
		if wi < 0 {
			out += fmt.Sprintf(" - %g*%s", -wi, labelAt(labels, i))
		} else {
			out += " + " + term
		}
	}
	if out == "" {
		return "0"
	}
	return out
}
