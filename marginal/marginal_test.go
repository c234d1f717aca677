package marginal

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/margo-stats/margo/hypothesis"
	"github.com/margo-stats/margo/model"
	"github.com/margo-stats/margo/pkg/errors"
	"github.com/margo-stats/margo/transform"
)

// fixture: y = 2x + 1 plus small fixed noise.
//
//	intercept = 1.1, slope = 1.96, sigma^2 = 0.016
//	Cov = [[0.024, -0.008], [-0.008, 0.0032]]
func fitLinear(t *testing.T) *model.OLS {
	t.Helper()
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := []float64{3.1, 4.9, 7.1, 8.9}

	m := model.NewOLS()
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return m
}

const (
	slope   = 1.96
	seSlope = 0.05656854249492381 // sqrt(0.0032)
)

func TestPredictions_PerRow(t *testing.T) {
	m := fitLinear(t)
	X := mat.NewDense(2, 1, []float64{1, 2})

	recs, err := Predictions(m, X)
	if err != nil {
		t.Fatalf("Predictions failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	// Fitted values at x=1 and x=2.
	if math.Abs(recs[0].Estimate-3.06) > 1e-10 {
		t.Errorf("prediction at x=1 = %g, want 3.06", recs[0].Estimate)
	}
	if math.Abs(recs[1].Estimate-5.02) > 1e-10 {
		t.Errorf("prediction at x=2 = %g, want 5.02", recs[1].Estimate)
	}

	// Var(pred at x=1) = [1 1] Cov [1 1]' = 0.0112.
	if math.Abs(recs[0].StdErr-math.Sqrt(0.0112)) > 1e-6 {
		t.Errorf("SE at x=1 = %g, want %g", recs[0].StdErr, math.Sqrt(0.0112))
	}

	for _, r := range recs {
		if !(r.ConfLow <= r.Estimate && r.Estimate <= r.ConfHigh) {
			t.Errorf("interval [%g, %g] does not bracket estimate %g", r.ConfLow, r.ConfHigh, r.Estimate)
		}
		if r.DF != 2 {
			t.Errorf("DF = %g, want 2", r.DF)
		}
	}
}

func TestPredictions_Averaged(t *testing.T) {
	m := fitLinear(t)
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	recs, err := Predictions(m, X, WithTransform(transform.IdentityAvg))
	if err != nil {
		t.Fatalf("Predictions failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	// Mean fitted value equals the mean response for OLS with intercept.
	if math.Abs(recs[0].Estimate-6.0) > 1e-10 {
		t.Errorf("averaged prediction = %g, want 6", recs[0].Estimate)
	}
}

func TestPredictions_RejectsBaselineKind(t *testing.T) {
	m := fitLinear(t)
	X := mat.NewDense(1, 1, []float64{1})

	_, err := Predictions(m, X, WithTransform(transform.Difference))
	if err == nil {
		t.Fatal("a baseline transform kind must be rejected")
	}
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("error has type %T, want *ValidationError", err)
	}
}

func TestComparisons_DifferenceEqualsSlope(t *testing.T) {
	m := fitLinear(t)

	// Unit contrast in x: the difference is the slope coefficient exactly,
	// and its SE is the slope's SE.
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	hi, err := CounterfactualData(X, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	lo, err := CounterfactualData(X, 0, 1)
	if err != nil {
		t.Fatal(err)
	}

	recs, err := Comparisons(m, hi, lo, WithTransform(transform.DifferenceAvg))
	if err != nil {
		t.Fatalf("Comparisons failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if math.Abs(recs[0].Estimate-slope) > 1e-9 {
		t.Errorf("contrast = %g, want %g", recs[0].Estimate, slope)
	}
	if math.Abs(recs[0].StdErr-seSlope) > 1e-6 {
		t.Errorf("SE = %g, want %g", recs[0].StdErr, seSlope)
	}
}

func TestComparisons_ScaledContrast(t *testing.T) {
	m := fitLinear(t)

	// A contrast of 3 units in x: estimate 3*slope, SE 3*se(slope).
	X := mat.NewDense(2, 1, []float64{1, 2})
	hi, _ := CounterfactualData(X, 0, 4)
	lo, _ := CounterfactualData(X, 0, 1)

	recs, err := Comparisons(m, hi, lo, WithTransform(transform.DifferenceAvg))
	if err != nil {
		t.Fatalf("Comparisons failed: %v", err)
	}
	if math.Abs(recs[0].Estimate-3*slope) > 1e-9 {
		t.Errorf("contrast = %g, want %g", recs[0].Estimate, 3*slope)
	}
	if math.Abs(recs[0].StdErr-3*seSlope) > 1e-6 {
		t.Errorf("SE = %g, want %g", recs[0].StdErr, 3*seSlope)
	}
}

func TestComparisons_Grouped(t *testing.T) {
	m := fitLinear(t)

	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	hi, _ := CounterfactualData(X, 0, 2)
	lo, _ := CounterfactualData(X, 0, 1)

	recs, err := Comparisons(m, hi, lo,
		WithTransform(transform.DifferenceAvg),
		WithGroups([]string{"young", "young", "old", "old"}),
	)
	if err != nil {
		t.Fatalf("Comparisons failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	// Sorted group order.
	if recs[0].Group != "old" || recs[1].Group != "young" {
		t.Errorf("groups = %q, %q, want old, young", recs[0].Group, recs[1].Group)
	}
	// A linear model has the same unit contrast in every group.
	for _, r := range recs {
		if math.Abs(r.Estimate-slope) > 1e-9 {
			t.Errorf("group %s contrast = %g, want %g", r.Group, r.Estimate, slope)
		}
	}
}

func TestComparisons_LnRatioAvgWithExpPost(t *testing.T) {
	m := fitLinear(t)

	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	hi, _ := CounterfactualData(X, 0, 2)
	lo, _ := CounterfactualData(X, 0, 1)

	pre, err := Comparisons(m, hi, lo, WithTransform(transform.LnRatioAvg))
	if err != nil {
		t.Fatalf("Comparisons failed: %v", err)
	}
	post, err := Comparisons(m, hi, lo,
		WithTransform(transform.LnRatioAvg),
		WithPost(transform.Exp),
	)
	if err != nil {
		t.Fatalf("Comparisons failed: %v", err)
	}

	// The post transform maps the estimate and bounds through exp and
	// leaves the SE on the log scale.
	if math.Abs(post[0].Estimate-math.Exp(pre[0].Estimate)) > 1e-10 {
		t.Errorf("post estimate = %g, want %g", post[0].Estimate, math.Exp(pre[0].Estimate))
	}
	if math.Abs(post[0].ConfLow-math.Exp(pre[0].ConfLow)) > 1e-10 {
		t.Errorf("post low = %g, want %g", post[0].ConfLow, math.Exp(pre[0].ConfLow))
	}
	if post[0].StdErr != pre[0].StdErr {
		t.Errorf("post SE = %g, want pre-transform SE %g", post[0].StdErr, pre[0].StdErr)
	}
}

func TestComparisons_DimensionMismatch(t *testing.T) {
	m := fitLinear(t)
	hi := mat.NewDense(2, 1, []float64{1, 2})
	lo := mat.NewDense(3, 1, []float64{1, 2, 3})

	if _, err := Comparisons(m, hi, lo); err == nil {
		t.Error("mismatched hi/lo dimensions must fail")
	}
}

func TestSlopes_LinearModel(t *testing.T) {
	m := fitLinear(t)
	X := mat.NewDense(3, 1, []float64{1, 2, 3})

	recs, err := Slopes(m, X, []int{0})
	if err != nil {
		t.Fatalf("Slopes failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	// The slope of a linear model is the coefficient at every row.
	for _, r := range recs {
		if math.Abs(r.Estimate-slope) > 1e-7 {
			t.Errorf("slope = %g, want %g", r.Estimate, slope)
		}
		if math.Abs(r.StdErr-seSlope) > 1e-5 {
			t.Errorf("SE = %g, want %g", r.StdErr, seSlope)
		}
	}
}

func TestSlopes_Averaged(t *testing.T) {
	m := fitLinear(t)
	X := mat.NewDense(3, 1, []float64{1, 2, 3})

	recs, err := Slopes(m, X, []int{0},
		WithTransform(transform.DyDxAvg),
		WithVarNames([]string{"x"}),
	)
	if err != nil {
		t.Fatalf("Slopes failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Term != "x" {
		t.Errorf("term = %q, want x", recs[0].Term)
	}
	if math.Abs(recs[0].Estimate-slope) > 1e-7 {
		t.Errorf("average slope = %g, want %g", recs[0].Estimate, slope)
	}
}

func TestSlopes_Validation(t *testing.T) {
	m := fitLinear(t)
	X := mat.NewDense(2, 1, []float64{1, 2})

	if _, err := Slopes(m, X, nil); err == nil {
		t.Error("empty variable list must fail")
	}
	if _, err := Slopes(m, X, []int{5}); err == nil {
		t.Error("out-of-range column index must fail")
	}
	if _, err := Slopes(m, X, []int{0}, WithTransform(transform.Ratio)); err == nil {
		t.Error("non-dydx transform kind must fail")
	}
	if _, err := Slopes(m, X, []int{0}, WithStepScale(0)); err == nil {
		t.Error("zero step scale must fail")
	}
	if _, err := Slopes(m, X, []int{0}, WithStepScale(math.NaN())); err == nil {
		t.Error("NaN step scale must fail")
	}
}

func TestHypothesis_FormulaOnPredictions(t *testing.T) {
	m := fitLinear(t)
	X := mat.NewDense(2, 1, []float64{1, 2})

	recs, err := Predictions(m, X, WithHypothesis(hypothesis.Formula("b1 = b2")))
	if err != nil {
		t.Fatalf("Predictions failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	// pred(x=1) - pred(x=2) = -slope; the intercept cancels, so the SE is
	// the slope's SE.
	if math.Abs(recs[0].Estimate-(-slope)) > 1e-9 {
		t.Errorf("combination = %g, want %g", recs[0].Estimate, -slope)
	}
	if math.Abs(recs[0].StdErr-seSlope) > 1e-6 {
		t.Errorf("SE = %g, want %g", recs[0].StdErr, seSlope)
	}
}

func TestHypothesis_PairwiseOnGroupedComparisons(t *testing.T) {
	m := fitLinear(t)

	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	hi, _ := CounterfactualData(X, 0, 2)
	lo, _ := CounterfactualData(X, 0, 1)

	recs, err := Comparisons(m, hi, lo,
		WithTransform(transform.DifferenceAvg),
		WithGroups([]string{"a", "a", "b", "b"}),
		WithHypothesis(hypothesis.Pairwise),
	)
	if err != nil {
		t.Fatalf("Comparisons failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1 pairwise contrast of 2 groups", len(recs))
	}
	// Identical group contrasts cancel exactly.
	if math.Abs(recs[0].Estimate) > 1e-9 {
		t.Errorf("pairwise contrast = %g, want 0", recs[0].Estimate)
	}
	if recs[0].Group != "" {
		t.Errorf("hypothesis rows must not carry group labels, got %q", recs[0].Group)
	}
}

func TestPosterior_Predictions(t *testing.T) {
	m := fitLinear(t)
	// Coefficient draws (intercept, slope): predictions at x=2 are 2, 4, 6.
	draws := mat.NewDense(3, 2, []float64{
		0, 1,
		0, 2,
		0, 3,
	})
	wrapped := model.WithDraws(m, draws)

	X := mat.NewDense(1, 1, []float64{2})
	recs, err := Predictions(wrapped, X)
	if err != nil {
		t.Fatalf("Predictions failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if math.Abs(recs[0].Estimate-4.0) > 1e-10 {
		t.Errorf("posterior median = %g, want 4", recs[0].Estimate)
	}
	if !math.IsNaN(recs[0].StdErr) {
		t.Errorf("posterior SE = %g, want NaN", recs[0].StdErr)
	}
	if recs[0].ConfLow > recs[0].Estimate || recs[0].ConfHigh < recs[0].Estimate {
		t.Errorf("credible interval [%g, %g] does not bracket the median", recs[0].ConfLow, recs[0].ConfHigh)
	}
}

func TestPosterior_NonLinearHypothesis(t *testing.T) {
	m := fitLinear(t)
	draws := mat.NewDense(3, 2, []float64{
		1, 2,
		1, 4,
		1, 6,
	})
	wrapped := model.WithDraws(m, draws)

	// Predictions at x=1 and x=3; the ratio per draw is (1+3b)/(1+b).
	X := mat.NewDense(2, 1, []float64{1, 3})
	recs, err := Predictions(wrapped, X, WithHypothesis(hypothesis.Formula("b2 / b1")))
	if err != nil {
		t.Fatalf("Predictions failed: %v", err)
	}
	// Draw ratios: 7/3, 13/5, 19/7; the median is 13/5.
	if math.Abs(recs[0].Estimate-2.6) > 1e-10 {
		t.Errorf("posterior ratio median = %g, want 2.6", recs[0].Estimate)
	}
}

func TestWorkerParity(t *testing.T) {
	m := fitLinear(t)
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	seq, err := Predictions(m, X)
	if err != nil {
		t.Fatal(err)
	}
	par, err := Predictions(m, X, WithWorkers(4))
	if err != nil {
		t.Fatal(err)
	}
	for i := range seq {
		if seq[i].Estimate != par[i].Estimate || seq[i].StdErr != par[i].StdErr {
			t.Errorf("record %d differs across worker counts", i)
		}
	}
}

func TestVarianceSelection(t *testing.T) {
	m := fitLinear(t)
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	hi, _ := CounterfactualData(X, 0, 2)
	lo, _ := CounterfactualData(X, 0, 1)

	classical, err := Comparisons(m, hi, lo, WithTransform(transform.DifferenceAvg))
	if err != nil {
		t.Fatal(err)
	}
	robust, err := Comparisons(m, hi, lo,
		WithTransform(transform.DifferenceAvg),
		WithVariance(model.VarianceSpec{Kind: model.VarianceHC3}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if classical[0].StdErr == robust[0].StdErr {
		t.Error("HC3 must change the standard error on this fixture")
	}
}

func TestGrid(t *testing.T) {
	g, err := Grid([]float64{1, 2}, []float64{10, 20, 30})
	if err != nil {
		t.Fatalf("Grid failed: %v", err)
	}
	r, c := g.Dims()
	if r != 6 || c != 2 {
		t.Fatalf("grid is %dx%d, want 6x2", r, c)
	}
	// Lexicographic order: the first column varies slowest.
	if g.At(0, 0) != 1 || g.At(0, 1) != 10 {
		t.Errorf("row 0 = (%g, %g), want (1, 10)", g.At(0, 0), g.At(0, 1))
	}
	if g.At(5, 0) != 2 || g.At(5, 1) != 30 {
		t.Errorf("row 5 = (%g, %g), want (2, 30)", g.At(5, 0), g.At(5, 1))
	}
}

func TestGrid_RowLimit(t *testing.T) {
	big := make([]float64, 200)
	_, err := Grid(big, big, big, big, big)
	if err == nil {
		t.Fatal("a grid beyond the row limit must fail")
	}
	var re *errors.ResourceLimitError
	if !errors.As(err, &re) {
		t.Errorf("error has type %T, want *ResourceLimitError", err)
	}
}

func TestGrid_EmptyInputs(t *testing.T) {
	if _, err := Grid(); err == nil {
		t.Error("no value lists must fail")
	}
	if _, err := Grid([]float64{1}, nil); err == nil {
		t.Error("an empty value list must fail")
	}
}

func TestTypicalRow(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})
	row := TypicalRow(X)
	if row.At(0, 0) != 2.5 || row.At(0, 1) != 25 {
		t.Errorf("typical row = (%g, %g), want (2.5, 25)", row.At(0, 0), row.At(0, 1))
	}
}

func TestCounterfactualData(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	cf, err := CounterfactualData(X, 1, 9)
	if err != nil {
		t.Fatalf("CounterfactualData failed: %v", err)
	}
	if cf.At(0, 1) != 9 || cf.At(1, 1) != 9 {
		t.Error("target column not fixed")
	}
	if cf.At(0, 0) != 1 || cf.At(1, 0) != 3 {
		t.Error("other columns disturbed")
	}
	if X.At(0, 1) != 2 {
		t.Error("source matrix mutated")
	}

	if _, err := CounterfactualData(X, 5, 0); err == nil {
		t.Error("out-of-range column must fail")
	}
}

func TestNotFittedModel(t *testing.T) {
	m := model.NewOLS()
	X := mat.NewDense(1, 1, []float64{1})

	if _, err := Predictions(m, X); err == nil {
		t.Error("an unfitted model must fail")
	}
}
