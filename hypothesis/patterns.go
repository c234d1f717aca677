package hypothesis

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/margo-stats/margo/pkg/errors"
)

// patternMatrix mechanically generates the contrast weight matrix for a
// named pattern over n estimates, together with output labels. The matrix is
// K-by-N with one row per generated contrast.
func patternMatrix(p Pattern, labels []string) (*mat.Dense, []string, error) {
	n := len(labels)
	if n < 2 {
		return nil, nil, errors.NewValueError("hypothesis", "named patterns require at least 2 estimates")
	}

	switch p {
	case Pairwise:
		k := n * (n - 1) / 2
		w := mat.NewDense(k, n, nil)
		out := make([]string, 0, k)
		r := 0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				w.Set(r, i, 1)
				w.Set(r, j, -1)
				out = append(out, contrastLabel(labels, i, j))
				r++
			}
		}
		return w, out, nil

	case RevPairwise:
		k := n * (n - 1) / 2
		w := mat.NewDense(k, n, nil)
		out := make([]string, 0, k)
		r := 0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				w.Set(r, j, 1)
				w.Set(r, i, -1)
				out = append(out, contrastLabel(labels, j, i))
				r++
			}
		}
		return w, out, nil

	case Sequential:
		w := mat.NewDense(n-1, n, nil)
		out := make([]string, n-1)
		for i := 0; i < n-1; i++ {
			w.Set(i, i+1, 1)
			w.Set(i, i, -1)
			out[i] = contrastLabel(labels, i+1, i)
		}
		return w, out, nil

	case Reference:
		w := mat.NewDense(n-1, n, nil)
		out := make([]string, n-1)
		for i := 1; i < n; i++ {
			w.Set(i-1, i, 1)
			w.Set(i-1, 0, -1)
			out[i-1] = contrastLabel(labels, i, 0)
		}
		return w, out, nil

	case MeanDev:
		w := mat.NewDense(n, n, nil)
		out := make([]string, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				w.Set(i, j, -1/float64(n))
			}
			w.Set(i, i, 1-1/float64(n))
			out[i] = labelAt(labels, i) + " - mean"
		}
		return w, out, nil

	case MeanOtherDev:
		w := mat.NewDense(n, n, nil)
		out := make([]string, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if j != i {
					w.Set(i, j, -1/float64(n-1))
				}
			}
			w.Set(i, i, 1)
			out[i] = labelAt(labels, i) + " - mean(others)"
		}
		return w, out, nil

	default:
		return nil, nil, errors.NewValidationError("hypothesis", "unknown pattern", string(p))
	}
}

func contrastLabel(labels []string, i, j int) string {
	return labelAt(labels, i) + " - " + labelAt(labels, j)
}

func labelAt(labels []string, i int) string {
	if labels[i] != "" {
		return labels[i]
	}
	return fmt.Sprintf("b%d", i+1)
}
