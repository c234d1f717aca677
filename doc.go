// Package margo computes marginal effects, adjusted predictions, contrasts,
// and hypothesis tests for fitted regression models, propagating coefficient
// uncertainty with the delta method.
//
// The engine consumes any model through the model.Adapter interface:
// coefficients, a covariance matrix, predictions at counterfactual
// coefficient vectors, and residual degrees of freedom. A reference OLS
// implementation with classical, heteroskedasticity-consistent (HC0-HC3),
// and cluster-robust covariance estimators lives in the model package.
//
// The top-level entry points are in the marginal package:
//
//	records, err := marginal.Comparisons(m, hi, lo,
//		marginal.WithTransform(transform.DifferenceAvg),
//		marginal.WithVariance(model.VarianceSpec{Kind: model.VarianceHC3}),
//	)
//
// Quantities of interest are built from paired predictions by the transform
// package (differences, ratios, log ratios, slopes, averaged and grouped
// variants), differentiated numerically with respect to the coefficients by
// the diff package, optionally recombined by the hypothesis package (weight
// vectors and matrices, formula strings such as "b2 - b1 = 0", named
// contrast patterns), and pushed through J Sigma J' by the delta package.
// Models that provide posterior coefficient draws are summarized
// empirically instead, with equal-tailed or highest-density credible
// intervals.
package margo
