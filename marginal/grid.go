package marginal

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/margo-stats/margo/pkg/errors"
)

// maxGridRows caps counterfactual grid construction before it can exhaust
// memory.
const maxGridRows = int64(1_000_000_000)

// Grid builds a balanced counterfactual data set: the cross product of the
// per-variable value lists, one column per list, in lexicographic row
// order. Grids larger than a billion rows are rejected with a
// ResourceLimitError.
func Grid(values ...[]float64) (*mat.Dense, error) {
	if len(values) == 0 {
		return nil, errors.ErrEmptyData
	}
	rows := int64(1)
	for i, vs := range values {
		if len(vs) == 0 {
			return nil, errors.NewValidationError("values", "empty value list", i)
		}
		rows *= int64(len(vs))
		if rows > maxGridRows || rows < 0 {
			return nil, errors.NewResourceLimitError("marginal.Grid", "rows", rows, maxGridRows)
		}
	}

	out := mat.NewDense(int(rows), len(values), nil)
	repeat := int(rows)
	for j, vs := range values {
		repeat /= len(vs)
		for i := 0; i < int(rows); i++ {
			out.Set(i, j, vs[(i/repeat)%len(vs)])
		}
	}
	return out, nil
}

// TypicalRow returns a single-row data set holding every column of X at its
// mean. Useful as the base row for CounterfactualData.
func TypicalRow(X mat.Matrix) *mat.Dense {
	n, c := X.Dims()
	row := mat.NewDense(1, c, nil)
	col := make([]float64, n)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		row.Set(0, j, stat.Mean(col, nil))
	}
	return row
}

// CounterfactualData copies X with one column fixed at a value, the typical
// construction for the hi or lo side of a contrast.
func CounterfactualData(X mat.Matrix, col int, value float64) (*mat.Dense, error) {
	n, c := X.Dims()
	if col < 0 || col >= c {
		return nil, errors.NewValidationError("col", "column index out of range", col)
	}
	out := mat.DenseCopyOf(X)
	for i := 0; i < n; i++ {
		out.Set(i, col, value)
	}
	return out, nil
}
