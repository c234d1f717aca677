package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/margo-stats/margo/pkg/errors"
)

// Covariance returns the coefficient covariance matrix of a fitted OLS model
// under the requested estimator.
//
// VarianceConst is sigma^2 (X'X)^-1. The HC estimators are the
// White sandwich (X'X)^-1 X'diag(w_i e_i^2)X (X'X)^-1 with
//
//	HC0: w_i = 1
//	HC1: w_i = n/(n-k)
//	HC2: w_i = 1/(1-h_ii)
//	HC3: w_i = 1/(1-h_ii)^2
//
// where h_ii is the hat-matrix leverage. CR0/CR1 replace the meat with the
// sum of per-cluster score outer products; CR1 multiplies by
// G/(G-1) * (n-1)/(n-k).
func (o *OLS) Covariance(spec VarianceSpec) (*mat.SymDense, error) {
	if !o.IsFitted() {
		return nil, errors.NewNotFittedError("OLS", "Covariance")
	}
	switch spec.Kind {
	case "", VarianceConst:
		return o.constCovariance(), nil
	case VarianceHC0, VarianceHC1, VarianceHC2, VarianceHC3:
		return o.sandwichCovariance(spec.Kind)
	case VarianceCR0, VarianceCR1:
		return o.clusterCovariance(spec)
	default:
		return nil, errors.NewValidationError("variance", "unknown estimator kind", spec.Kind)
	}
}

func (o *OLS) constCovariance() *mat.SymDense {
	p := len(o.coefs)
	cov := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			cov.SetSym(i, j, o.sigma2*o.xtxInv.At(i, j))
		}
	}
	return cov
}

func (o *OLS) sandwichCovariance(kind VarianceKind) (*mat.SymDense, error) {
	n, p := o.design.Dims()

	var leverages []float64
	if kind == VarianceHC2 || kind == VarianceHC3 {
		leverages = o.leverages()
	}

	// Meat: X' diag(w_i e_i^2) X.
	meat := mat.NewDense(p, p, nil)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		w := o.residuals[i] * o.residuals[i]
		switch kind {
		case VarianceHC1:
			w *= float64(n) / float64(n-p)
		case VarianceHC2:
			w /= 1 - leverages[i]
		case VarianceHC3:
			d := 1 - leverages[i]
			w /= d * d
		}
		mat.Row(row, i, o.design)
		for a := 0; a < p; a++ {
			for b := 0; b < p; b++ {
				meat.Set(a, b, meat.At(a, b)+w*row[a]*row[b])
			}
		}
	}

	return o.bread(meat), nil
}

func (o *OLS) clusterCovariance(spec VarianceSpec) (*mat.SymDense, error) {
	n, p := o.design.Dims()
	if len(spec.Clusters) != n {
		return nil, errors.NewDimensionError("OLS.Covariance", n, len(spec.Clusters), 0)
	}

	// Per-cluster scores X_g' e_g.
	scores := make(map[int][]float64)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		g := spec.Clusters[i]
		s, ok := scores[g]
		if !ok {
			s = make([]float64, p)
			scores[g] = s
		}
		mat.Row(row, i, o.design)
		for a := 0; a < p; a++ {
			s[a] += row[a] * o.residuals[i]
		}
	}

	nClusters := len(scores)
	if nClusters < 2 {
		return nil, errors.NewValueError("OLS.Covariance", "cluster-robust covariance requires at least 2 clusters")
	}

	meat := mat.NewDense(p, p, nil)
	for _, s := range scores {
		for a := 0; a < p; a++ {
			for b := 0; b < p; b++ {
				meat.Set(a, b, meat.At(a, b)+s[a]*s[b])
			}
		}
	}

	if spec.Kind == VarianceCR1 {
		g := float64(nClusters)
		adj := g / (g - 1) * float64(n-1) / float64(n-p)
		meat.Scale(adj, meat)
	}

	return o.bread(meat), nil
}

// bread wraps a meat matrix in (X'X)^-1 on both sides and symmetrizes.
func (o *OLS) bread(meat *mat.Dense) *mat.SymDense {
	p := len(o.coefs)
	var tmp, sandwich mat.Dense
	tmp.Mul(o.xtxInv, meat)
	sandwich.Mul(&tmp, o.xtxInv)

	cov := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			// Average the off-diagonal pair to wash out asymmetry from roundoff.
			cov.SetSym(i, j, 0.5*(sandwich.At(i, j)+sandwich.At(j, i)))
		}
	}
	return cov
}

// leverages returns the hat-matrix diagonal h_ii = x_i (X'X)^-1 x_i'.
func (o *OLS) leverages() []float64 {
	n, p := o.design.Dims()
	h := make([]float64, n)
	row := make([]float64, p)
	tmp := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, o.design)
		for a := 0; a < p; a++ {
			tmp[a] = 0
			for b := 0; b < p; b++ {
				tmp[a] += o.xtxInv.At(a, b) * row[b]
			}
		}
		for a := 0; a < p; a++ {
			h[i] += row[a] * tmp[a]
		}
	}
	return h
}
