// Package model defines the capability interface the estimation engine
// requires from a fitted model, and provides an ordinary-least-squares
// reference implementation.
//
// The engine never branches on model identity: coefficient extraction,
// covariance extraction, prediction at counterfactual coefficient vectors,
// degrees of freedom and posterior draws are the entire surface a model must
// provide. A wrapper around any external modeling library that implements
// Adapter plugs into every operation in the marginal package.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// VarianceKind selects the covariance estimator returned by
// Adapter.Covariance.
type VarianceKind string

const (
	// VarianceConst is the ordinary homoskedastic estimator.
	VarianceConst VarianceKind = "const"
	// VarianceHC0 through VarianceHC3 are heteroskedasticity-robust sandwich
	// estimators with increasingly aggressive small-sample corrections.
	VarianceHC0 VarianceKind = "HC0"
	VarianceHC1 VarianceKind = "HC1"
	VarianceHC2 VarianceKind = "HC2"
	VarianceHC3 VarianceKind = "HC3"
	// VarianceCR0 and VarianceCR1 are cluster-robust estimators; CR1 applies
	// the G/(G-1) * (N-1)/(N-K) small-sample correction.
	VarianceCR0 VarianceKind = "CR0"
	VarianceCR1 VarianceKind = "CR1"
)

// VarianceSpec selects a covariance estimator. Clusters is required for the
// CR kinds and ignored otherwise; it assigns each observation to a cluster.
// The engine passes the spec through to the adapter without interpreting it.
type VarianceSpec struct {
	Kind     VarianceKind
	Clusters []int
}

// Adapter is the capability interface a fitted model exposes to the engine.
//
// Predict must be a pure function of (coefs, X): it must support evaluation
// at counterfactual coefficient vectors without refitting and without
// mutating the model, because the differentiation engine calls it up to
// 2*P+1 times per request, possibly from multiple goroutines.
type Adapter interface {
	// Coefficients returns the fitted coefficient names and values, aligned
	// index for index.
	Coefficients() (names []string, values []float64)

	// Covariance returns the coefficient covariance matrix under the given
	// estimator spec. The matrix dimension equals the coefficient count; it
	// may be rank-deficient.
	Covariance(spec VarianceSpec) (*mat.SymDense, error)

	// Predict evaluates the model's predictions over X at an arbitrary
	// coefficient vector, one value per row.
	Predict(coefs []float64, X mat.Matrix) ([]float64, error)

	// DegreesOfFreedom returns the residual degrees of freedom, or +Inf when
	// the model's reference distribution is normal.
	DegreesOfFreedom() float64
}

// DrawsProvider is implemented by adapters for posterior-draw-based models.
// Draws returns a draws-by-coefficients matrix; the engine maps each draw
// through the quantity-of-interest function and summarizes empirically
// instead of running the delta method.
type DrawsProvider interface {
	// Draws returns posterior coefficient draws, or nil when the model has
	// none.
	Draws() *mat.Dense
}

// PosteriorDraws returns the posterior draws of m, or nil when m is not
// draw-based.
func PosteriorDraws(m Adapter) *mat.Dense {
	if dp, ok := m.(DrawsProvider); ok {
		return dp.Draws()
	}
	return nil
}
