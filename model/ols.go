package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/margo-stats/margo/core/parallel"
	"github.com/margo-stats/margo/pkg/errors"
)

// OLS is an ordinary-least-squares regression model implementing Adapter.
// It exists as the engine's reference model: a fitted model whose
// coefficients, covariance and predictions have closed forms, usable both in
// production for linear problems and as the ground truth in tests.
type OLS struct {
	BaseEstimator

	fitIntercept bool
	featureNames []string

	coefNames []string
	coefs     []float64
	design    *mat.Dense // X with intercept column when fitIntercept
	residuals []float64
	xtxInv    *mat.Dense
	sigma2    float64 // residual variance RSS / dfResidual
	dfRes     float64
}

// OLSOption configures an OLS model.
type OLSOption func(*OLS)

// WithIntercept sets whether an intercept column is added (default true).
func WithIntercept(fit bool) OLSOption {
	return func(o *OLS) {
		o.fitIntercept = fit
	}
}

// WithFeatureNames sets the coefficient names used in output labels. The
// default is x1..xp.
func WithFeatureNames(names []string) OLSOption {
	return func(o *OLS) {
		o.featureNames = names
	}
}

// NewOLS creates a new OLS model.
func NewOLS(opts ...OLSOption) *OLS {
	o := &OLS{fitIntercept: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Fit estimates the model by the normal equations w = (X'X)^-1 X'y.
func (o *OLS) Fit(X mat.Matrix, y []float64) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "OLS.Fit")
	}
	if len(y) != r {
		return errors.NewDimensionError("OLS.Fit", r, len(y), 0)
	}
	if o.featureNames != nil && len(o.featureNames) != c {
		return errors.NewDimensionError("OLS.Fit", c, len(o.featureNames), 1)
	}
	if err := errors.CheckMatrix("OLS.Fit", X, r, c); err != nil {
		return err
	}
	if err := errors.CheckNumericalStability("OLS.Fit", y); err != nil {
		return err
	}

	p := c
	offset := 0
	if o.fitIntercept {
		p = c + 1
		offset = 1
	}

	design := mat.NewDense(r, p, nil)
	const parallelThreshold = 1000
	parallel.RunWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if o.fitIntercept {
				design.Set(i, 0, 1.0)
			}
			for j := 0; j < c; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
		}
	})

	var xtx mat.Dense
	xtx.Mul(design.T(), design)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return errors.Wrap(errors.ErrSingularMatrix, "OLS.Fit")
	}

	yVec := mat.NewVecDense(r, y)
	var xty mat.VecDense
	xty.MulVec(design.T(), yVec)

	coefVec := mat.NewVecDense(p, nil)
	coefVec.MulVec(&xtxInv, &xty)

	coefs := make([]float64, p)
	copy(coefs, coefVec.RawVector().Data)

	// Residuals and residual variance.
	var fittedVals mat.VecDense
	fittedVals.MulVec(design, coefVec)
	residuals := make([]float64, r)
	rss := 0.0
	for i := 0; i < r; i++ {
		residuals[i] = y[i] - fittedVals.AtVec(i)
		rss += residuals[i] * residuals[i]
	}
	dfRes := float64(r - p)
	if dfRes <= 0 {
		return errors.NewValueError("OLS.Fit", "no residual degrees of freedom: more parameters than rows")
	}

	names := make([]string, p)
	if o.fitIntercept {
		names[0] = "(Intercept)"
	}
	for j := 0; j < c; j++ {
		if o.featureNames != nil {
			names[j+offset] = o.featureNames[j]
		} else {
			names[j+offset] = fmt.Sprintf("x%d", j+1)
		}
	}

	o.coefNames = names
	o.coefs = coefs
	o.design = design
	o.residuals = residuals
	o.xtxInv = &xtxInv
	o.sigma2 = rss / dfRes
	o.dfRes = dfRes
	o.SetFitted()

	return nil
}

// Coefficients returns the fitted coefficient names and values.
func (o *OLS) Coefficients() ([]string, []float64) {
	if !o.IsFitted() {
		return nil, nil
	}
	names := make([]string, len(o.coefNames))
	copy(names, o.coefNames)
	values := make([]float64, len(o.coefs))
	copy(values, o.coefs)
	return names, values
}

// Predict evaluates X * coefs (plus intercept when fitted with one) at an
// arbitrary coefficient vector. X carries the raw features, not the design
// matrix; the intercept column is prepended internally.
func (o *OLS) Predict(coefs []float64, X mat.Matrix) ([]float64, error) {
	if !o.IsFitted() {
		return nil, errors.NewNotFittedError("OLS", "Predict")
	}
	r, c := X.Dims()
	offset := 0
	if o.fitIntercept {
		offset = 1
	}
	if c+offset != len(coefs) {
		return nil, errors.NewDimensionError("OLS.Predict", len(coefs)-offset, c, 1)
	}

	out := make([]float64, r)
	for i := 0; i < r; i++ {
		pred := 0.0
		if o.fitIntercept {
			pred = coefs[0]
		}
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * coefs[j+offset]
		}
		out[i] = pred
	}
	return out, nil
}

// DegreesOfFreedom returns the residual degrees of freedom n - p.
func (o *OLS) DegreesOfFreedom() float64 {
	if !o.IsFitted() {
		return 0
	}
	return o.dfRes
}

// Residuals returns a copy of the fitted residuals.
func (o *OLS) Residuals() []float64 {
	if !o.IsFitted() {
		return nil
	}
	res := make([]float64, len(o.residuals))
	copy(res, o.residuals)
	return res
}
