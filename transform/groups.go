package transform

import (
	"sort"

	"github.com/margo-stats/margo/pkg/errors"
)

// ApplyGrouped computes an averaged transform within subgroups instead of
// over all rows, producing one quantity per group. keys assigns each row to
// a group; output rows are ordered by sorted group key so results are
// deterministic. Non-averaged kinds reject grouping: their output is already
// per-row and a grouping key adds nothing.
func ApplyGrouped(k Kind, hi, lo []float64, step float64, keys []string) (values []float64, groups []string, err error) {
	if !k.Averaged() {
		return nil, nil, errors.NewValidationError("by", "grouped aggregation requires an averaged transform kind", string(k))
	}
	if len(keys) != len(hi) {
		return nil, nil, errors.NewDimensionError("transform.ApplyGrouped", len(hi), len(keys), 0)
	}

	idx := make(map[string][]int)
	for i, key := range keys {
		idx[key] = append(idx[key], i)
	}
	groups = make([]string, 0, len(idx))
	for key := range idx {
		groups = append(groups, key)
	}
	sort.Strings(groups)

	values = make([]float64, 0, len(groups))
	for _, key := range groups {
		rows := idx[key]
		ghi := gather(hi, rows)
		var glo []float64
		if lo != nil {
			glo = gather(lo, rows)
		}
		v, err := Apply(k, ghi, glo, step)
		if err != nil {
			return nil, nil, err
		}
		values = append(values, v[0])
	}
	return values, groups, nil
}

func gather(src []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = src[r]
	}
	return out
}
