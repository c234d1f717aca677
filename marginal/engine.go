// Package marginal is the top-level orchestration layer: it turns a fitted
// model and a data set into adjusted predictions, contrasts, or slopes with
// delta-method uncertainty, optionally filtered through a hypothesis
// specification and summarized from posterior draws when the model supplies
// them.
package marginal

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/margo-stats/margo/delta"
	"github.com/margo-stats/margo/diff"
	"github.com/margo-stats/margo/hypothesis"
	"github.com/margo-stats/margo/model"
	"github.com/margo-stats/margo/pkg/errors"
	"github.com/margo-stats/margo/pkg/log"
)

// run is the shared estimation pipeline. f maps a coefficient vector to the
// quantities of interest; labels and groups are aligned with f's output.
// groups may be nil.
func run(op string, m model.Adapter, f diff.Func, labels, groups []string, cfg *config) ([]delta.Record, error) {
	start := time.Now()

	names, coefs := m.Coefficients()
	if len(coefs) == 0 {
		return nil, errors.NewNotFittedError("Adapter", op)
	}

	base, err := f(coefs)
	if err != nil {
		return nil, errors.NewEvaluationError(op, "base", err)
	}
	if len(base) != len(labels) {
		return nil, errors.NewDimensionError(op, len(labels), len(base), 0)
	}
	if groups != nil && len(groups) != len(labels) {
		return nil, errors.NewDimensionError(op, len(labels), len(groups), 0)
	}
	// Hypothesis rows are combinations across quantities; per-quantity group
	// labels no longer apply.
	if cfg.hyp != nil {
		groups = nil
	}

	var records []delta.Record
	if draws := model.PosteriorDraws(m); draws != nil {
		records, err = posteriorRun(op, f, draws, base, labels, groups, cfg)
	} else {
		records, err = frequentistRun(op, m, f, coefs, names, base, labels, groups, cfg)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("estimation complete",
		slog.String(log.OperationKey, op),
		slog.Int(log.ParamsKey, len(coefs)),
		slog.Int(log.QuantitiesKey, len(records)),
		slog.Int(log.WorkersKey, cfg.workers),
		slog.Int64(log.DurationMsKey, time.Since(start).Milliseconds()),
	)
	return records, nil
}

// frequentistRun differentiates f at the fitted coefficients, resolves the
// hypothesis against the Jacobian, and propagates the coefficient
// covariance through it.
func frequentistRun(op string, m model.Adapter, f diff.Func, coefs []float64, names []string, base []float64, labels, groups []string, cfg *config) ([]delta.Record, error) {
	jac, err := diff.Jacobian(f, coefs, diff.Options{
		Workers:   cfg.workers,
		Lenient:   cfg.lenient,
		CoefNames: names,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s: differentiating quantities", op)
	}

	res, err := hypothesis.Resolve(cfg.hyp, base, labels, jac)
	if err != nil {
		return nil, err
	}

	sigma, err := m.Covariance(cfg.variance)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: coefficient covariance", op)
	}

	return delta.Propagate(res.Estimates, res.Labels, res.Nulls, groups, res.Jacobian, sigma, m.DegreesOfFreedom(), cfg.deltaOptions())
}

// posteriorRun maps every coefficient draw through the quantity function
// (and the resolved hypothesis combination) and summarizes the resulting
// draws empirically. No Jacobian is needed on this path.
func posteriorRun(op string, f diff.Func, draws *mat.Dense, base []float64, labels, groups []string, cfg *config) ([]delta.Record, error) {
	res, err := hypothesis.Resolve(cfg.hyp, base, labels, nil)
	if err != nil {
		return nil, err
	}

	s, p := draws.Dims()
	if s == 0 {
		return nil, errors.ErrNoDraws
	}
	k := len(res.Estimates)

	out := mat.NewDense(s, k, nil)
	coefs := make([]float64, p)
	for i := 0; i < s; i++ {
		copy(coefs, draws.RawRowView(i))
		vals, err := f(coefs)
		if err != nil {
			return nil, errors.NewEvaluationError(op, "posterior draw", err)
		}
		combined, err := res.Combine(vals)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: combining draw %d", op, i)
		}
		if len(combined) != k {
			return nil, errors.NewDimensionError(op, k, len(combined), 1)
		}
		out.SetRow(i, combined)
	}

	slog.Debug("posterior draws mapped",
		slog.String(log.OperationKey, op),
		slog.Int(log.DrawsKey, s),
		slog.Int(log.QuantitiesKey, k),
	)
	return delta.Summarize(out, res.Labels, res.Nulls, groups, cfg.deltaOptions())
}

// quantityLabels builds output labels and group keys for a transform over n
// data rows: per-row labels for elementwise kinds, the distinct sorted
// group keys for grouped averages, or a single label for a plain average.
func quantityLabels(prefix string, n int, averaged bool, keys []string) (labels, groups []string) {
	if !averaged {
		labels = make([]string, n)
		for i := range labels {
			labels[i] = rowLabel(prefix, i)
		}
		return labels, nil
	}
	if keys == nil {
		return []string{prefix}, nil
	}
	groups = distinctSorted(keys)
	labels = make([]string, len(groups))
	for i, g := range groups {
		labels[i] = prefix + ": " + g
	}
	return labels, groups
}
