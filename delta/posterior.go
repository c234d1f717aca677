package delta

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"github.com/margo-stats/margo/pkg/errors"
)

// Summarize condenses posterior draws of the quantities of interest into
// Records. draws is SxK with one row per posterior draw and one column per
// quantity. The point estimate is the column median (or mean, per the
// options); intervals are equal-tailed empirical quantiles or the highest
// density interval. Frequentist fields (StdErr, Statistic, DF, PValue) are
// NaN in posterior mode.
func Summarize(draws *mat.Dense, labels []string, nulls []float64, groups []string, opts Options) ([]Record, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if draws == nil {
		return nil, errors.ErrNoDraws
	}
	s, k := draws.Dims()
	if s == 0 || k == 0 {
		return nil, errors.ErrNoDraws
	}
	if len(labels) != k {
		return nil, errors.NewDimensionError("delta.Summarize", k, len(labels), 1)
	}
	if len(nulls) != k {
		return nil, errors.NewDimensionError("delta.Summarize", k, len(nulls), 1)
	}
	if groups != nil && len(groups) != k {
		return nil, errors.NewDimensionError("delta.Summarize", k, len(groups), 1)
	}

	records := make([]Record, k)
	col := make([]float64, s)
	for j := 0; j < k; j++ {
		mat.Col(col, j, draws)

		center, err := centerOf(col, opts.Center)
		if err != nil {
			return nil, errors.Wrapf(err, "summarizing draws for %q", labels[j])
		}
		lo, hi := interval(col, opts.ConfLevel, opts.Interval)

		rec := Record{
			Term:      labels[j],
			Estimate:  center,
			StdErr:    math.NaN(),
			Statistic: math.NaN(),
			DF:        math.NaN(),
			PValue:    math.NaN(),
			ConfLow:   lo,
			ConfHigh:  hi,
			Null:      nulls[j],
		}
		if groups != nil {
			rec.Group = groups[j]
		}
		records[j] = rec
	}

	if opts.Post != nil {
		applyPost(records, opts.Post)
	}
	return records, nil
}

func centerOf(draws []float64, c CenterStatistic) (float64, error) {
	if c == Mean {
		return stats.Mean(draws)
	}
	return stats.Median(draws)
}

// interval computes the credible interval of the draws at the given mass.
func interval(draws []float64, mass float64, kind IntervalEstimator) (float64, float64) {
	if kind == HighestDensity {
		return hdi(draws, mass)
	}
	alpha := 1 - mass
	lo, errLo := stats.Percentile(draws, 100*alpha/2)
	hi, errHi := stats.Percentile(draws, 100*(1-alpha/2))
	if errLo != nil || errHi != nil {
		return math.NaN(), math.NaN()
	}
	return lo, hi
}

// hdi finds the shortest contiguous window of the sorted draws holding the
// requested mass. With too few draws for a proper window it degenerates to
// the full range of the sample.
func hdi(draws []float64, mass float64) (float64, float64) {
	sorted := make([]float64, len(draws))
	copy(sorted, draws)
	sort.Float64s(sorted)

	n := len(sorted)
	nInc := int(math.Ceil(mass * float64(n)))
	if nInc < 2 || nInc > n {
		return sorted[0], sorted[n-1]
	}

	bestLo, bestHi := sorted[0], sorted[nInc-1]
	bestWidth := bestHi - bestLo
	for i := 1; i+nInc <= n; i++ {
		if w := sorted[i+nInc-1] - sorted[i]; w < bestWidth {
			bestWidth = w
			bestLo, bestHi = sorted[i], sorted[i+nInc-1]
		}
	}
	return bestLo, bestHi
}
