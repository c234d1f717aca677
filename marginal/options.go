package marginal

import (
	"github.com/margo-stats/margo/delta"
	"github.com/margo-stats/margo/hypothesis"
	"github.com/margo-stats/margo/model"
	"github.com/margo-stats/margo/transform"
)

// defaultStepScale is the relative regressor perturbation used by Slopes.
const defaultStepScale = 1e-4

type config struct {
	workers   int
	lenient   bool
	confLevel float64
	kind      transform.Kind
	post      transform.Post
	hyp       hypothesis.Spec
	groups    []string
	variance  model.VarianceSpec
	interval  delta.IntervalEstimator
	center    delta.CenterStatistic
	step      float64
	stepScale float64
	varNames  []string
}

func newConfig(opts []Option) *config {
	cfg := &config{
		workers:   1,
		confLevel: 0.95,
		variance:  model.VarianceSpec{Kind: model.VarianceConst},
		interval:  delta.EqualTailed,
		center:    delta.Median,
		stepScale: defaultStepScale,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *config) deltaOptions() delta.Options {
	return delta.Options{
		ConfLevel: c.confLevel,
		Interval:  c.interval,
		Center:    c.center,
		Post:      c.post,
	}
}

// Option configures a single estimation call.
type Option func(*config)

// WithWorkers sets the number of goroutines differentiating Jacobian
// columns. The default of 1 keeps evaluations sequential, which is safe for
// non-reentrant prediction callbacks.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithLenientJacobian tolerates perturbed-point evaluation failures: the
// affected coefficient's column is filled with NaN and a warning is raised
// instead of aborting.
func WithLenientJacobian() Option {
	return func(c *config) { c.lenient = true }
}

// WithConfLevel sets the two-sided confidence (or credible) level.
// The default is 0.95.
func WithConfLevel(level float64) Option {
	return func(c *config) { c.confLevel = level }
}

// WithTransform selects the quantity-of-interest transform. Predictions
// accepts identity kinds, Comparisons the baseline kinds, Slopes the dydx
// kinds; each operation validates the choice.
func WithTransform(k transform.Kind) Option {
	return func(c *config) { c.kind = k }
}

// WithPost maps point estimates and confidence bounds through fn after
// inference. Standard errors stay on the pre-transform scale.
func WithPost(fn transform.Post) Option {
	return func(c *config) { c.post = fn }
}

// WithHypothesis applies a hypothesis specification to the quantities
// before inference: a weight vector, weight matrix, formula string, or
// named contrast pattern.
func WithHypothesis(spec hypothesis.Spec) Option {
	return func(c *config) { c.hyp = spec }
}

// WithGroups supplies one group key per data row. Averaged transform kinds
// then produce one quantity per distinct key, averaged before
// differentiation.
func WithGroups(keys []string) Option {
	return func(c *config) { c.groups = keys }
}

// WithVariance selects the coefficient covariance estimator requested from
// the model adapter.
func WithVariance(spec model.VarianceSpec) Option {
	return func(c *config) { c.variance = spec }
}

// WithIntervalEstimator selects equal-tailed or highest-density posterior
// intervals. Ignored outside posterior mode.
func WithIntervalEstimator(e delta.IntervalEstimator) Option {
	return func(c *config) { c.interval = e }
}

// WithCenter selects the posterior point-estimate statistic. Ignored
// outside posterior mode.
func WithCenter(s delta.CenterStatistic) Option {
	return func(c *config) { c.center = s }
}

// WithStep sets the explicit contrast step used by the dydx transform kinds
// in Comparisons, matching the perturbation the caller built the hi/lo data
// with.
func WithStep(step float64) Option {
	return func(c *config) { c.step = step }
}

// WithStepScale overrides the relative regressor perturbation used by
// Slopes.
func WithStepScale(scale float64) Option {
	return func(c *config) { c.stepScale = scale }
}

// WithVarNames names the variables passed to Slopes, aligned with the
// column indices. Unnamed variables fall back to x<col+1>.
func WithVarNames(names []string) Option {
	return func(c *config) { c.varNames = names }
}
