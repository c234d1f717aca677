package marginal

import (
	"gonum.org/v1/gonum/mat"

	"github.com/margo-stats/margo/delta"
	"github.com/margo-stats/margo/model"
	"github.com/margo-stats/margo/pkg/errors"
	"github.com/margo-stats/margo/transform"
)

// Predictions computes adjusted predictions for every row of X, with
// delta-method uncertainty. The default transform is the identity (one
// quantity per row); transform.IdentityAvg averages predictions into one
// quantity, or one per group when WithGroups is set.
func Predictions(m model.Adapter, X mat.Matrix, opts ...Option) ([]delta.Record, error) {
	cfg := newConfig(opts)

	kind := cfg.kind
	if kind == "" {
		kind = transform.Identity
	}
	if !kind.Valid() || kind.NeedsBaseline() {
		return nil, errors.NewValidationError("transform", "Predictions accepts identity transform kinds only", string(kind))
	}

	n, _ := X.Dims()
	if n == 0 {
		return nil, errors.ErrEmptyData
	}
	keys := groupKeys(cfg, kind)
	if keys != nil && len(keys) != n {
		return nil, errors.NewDimensionError("marginal.Predictions", n, len(keys), 0)
	}

	f := func(coefs []float64) ([]float64, error) {
		preds, err := m.Predict(coefs, X)
		if err != nil {
			return nil, err
		}
		if keys != nil {
			vals, _, err := transform.ApplyGrouped(kind, preds, nil, 0, keys)
			return vals, err
		}
		return transform.Apply(kind, preds, nil, 0)
	}

	labels, groups := quantityLabels("prediction", n, kind.Averaged(), keys)
	return run("marginal.Predictions", m, f, labels, groups, cfg)
}

// groupKeys returns the per-row group keys when the transform kind can use
// them, nil otherwise.
func groupKeys(cfg *config, kind transform.Kind) []string {
	if cfg.groups == nil || !kind.Averaged() {
		return nil
	}
	return cfg.groups
}
