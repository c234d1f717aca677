package errors

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("op", []float64{1, -2, 0}); err != nil {
		t.Fatalf("finite slice flagged unstable: %v", err)
	}

	err := CheckNumericalStability("op", []float64{1, math.NaN()})
	if err == nil {
		t.Fatal("NaN must be flagged")
	}
	var ne *NumericalInstabilityError
	if !As(err, &ne) {
		t.Fatalf("error has type %T, want *NumericalInstabilityError", err)
	}
	if ne.Operation != "op" {
		t.Errorf("operation = %q, want op", ne.Operation)
	}

	if CheckNumericalStability("op", []float64{math.Inf(-1)}) == nil {
		t.Error("-Inf must be flagged")
	}
}

func TestCheckScalar(t *testing.T) {
	if err := CheckScalar("op", 1e-4); err != nil {
		t.Errorf("finite scalar flagged unstable: %v", err)
	}
	if CheckScalar("op", math.NaN()) == nil {
		t.Error("NaN scalar must be flagged")
	}
	if CheckScalar("op", math.Inf(1)) == nil {
		t.Error("Inf scalar must be flagged")
	}
}

func TestCheckMatrix(t *testing.T) {
	ok := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if err := CheckMatrix("op", ok, 2, 2); err != nil {
		t.Errorf("finite matrix flagged unstable: %v", err)
	}

	bad := mat.NewDense(2, 2, []float64{1, math.Inf(1), 3, 4})
	err := CheckMatrix("op", bad, 2, 2)
	if err == nil {
		t.Fatal("Inf entry must be flagged")
	}
	var ne *NumericalInstabilityError
	if !As(err, &ne) {
		t.Fatalf("error has type %T, want *NumericalInstabilityError", err)
	}
}

func TestStabilizeLog(t *testing.T) {
	if got := StabilizeLog(math.E); math.Abs(got-1) > 1e-12 {
		t.Errorf("StabilizeLog(e) = %g, want 1", got)
	}

	floor := math.Log(1e-10)
	for _, v := range []float64{0, -1, 1e-12} {
		if got := StabilizeLog(v); got != floor {
			t.Errorf("StabilizeLog(%g) = %g, want the log floor %g", v, got, floor)
		}
	}
}

func TestStabilizeExp(t *testing.T) {
	if got := StabilizeExp(1); math.Abs(got-math.E) > 1e-12 {
		t.Errorf("StabilizeExp(1) = %g, want e", got)
	}
	if got := StabilizeExp(1e4); math.IsInf(got, 1) {
		t.Error("StabilizeExp must clip overflow to a finite value")
	}
	if got := StabilizeExp(-1e4); got != 0 {
		t.Errorf("StabilizeExp(-1e4) = %g, want 0", got)
	}
}
