// Package delta is the propagation core of the engine: it combines a
// Jacobian with a coefficient covariance matrix to produce standard errors,
// test statistics, p-values and confidence intervals for every quantity of
// interest, and summarizes posterior draws empirically for draw-based
// models.
package delta

import (
	"github.com/margo-stats/margo/pkg/errors"
	"github.com/margo-stats/margo/transform"
)

// IntervalEstimator selects how credible intervals are computed from
// posterior draws.
type IntervalEstimator string

const (
	// EqualTailed uses the [alpha/2, 1-alpha/2] empirical quantiles.
	EqualTailed IntervalEstimator = "eti"
	// HighestDensity uses the shortest contiguous window of the sorted draws
	// containing the confidence mass.
	HighestDensity IntervalEstimator = "hdi"
)

// CenterStatistic selects the central-tendency statistic used as the point
// estimate in posterior mode.
type CenterStatistic string

const (
	// Median is the default posterior point estimate.
	Median CenterStatistic = "median"
	// Mean uses the posterior mean instead.
	Mean CenterStatistic = "mean"
)

// Options is the immutable configuration threaded through a single
// estimation call. The zero value is not usable; construct with
// DefaultOptions and adjust.
type Options struct {
	// ConfLevel is the two-sided confidence (or credible) level, in (0, 1).
	ConfLevel float64

	// Interval selects the posterior interval estimator. Ignored outside
	// posterior mode.
	Interval IntervalEstimator

	// Center selects the posterior point-estimate statistic. Ignored
	// outside posterior mode.
	Center CenterStatistic

	// Post, when non-nil, maps point estimates and confidence bounds after
	// inference. Standard errors and p-values stay on the pre-transform
	// scale.
	Post transform.Post
}

// DefaultOptions returns the documented defaults: 95% intervals,
// equal-tailed posterior intervals centered on the median, no post
// transform.
func DefaultOptions() Options {
	return Options{
		ConfLevel: 0.95,
		Interval:  EqualTailed,
		Center:    Median,
	}
}

// Validate checks the options, returning a ValidationError on the first
// offending value.
func (o Options) Validate() error {
	if !(o.ConfLevel > 0 && o.ConfLevel < 1) {
		return errors.NewValidationError("conf_level", "must be strictly between 0 and 1", o.ConfLevel)
	}
	switch o.Interval {
	case EqualTailed, HighestDensity:
	default:
		return errors.NewValidationError("interval", "unknown interval estimator", string(o.Interval))
	}
	switch o.Center {
	case Median, Mean:
	default:
		return errors.NewValidationError("center", "unknown center statistic", string(o.Center))
	}
	return nil
}
