package errors

import (
	"strings"
	"testing"
)

func TestWarningHandler(t *testing.T) {
	var captured []error
	SetWarningHandler(func(w error) {
		captured = append(captured, w)
	})
	defer SetWarningHandler(nil)

	Warn(NewDegenerateVarianceWarning("b1 - b2", 0, -1e-18))

	if len(captured) != 1 {
		t.Fatalf("captured %d warnings, want 1", len(captured))
	}
	var dv *DegenerateVarianceWarning
	if !As(captured[0], &dv) {
		t.Fatalf("warning has type %T, want *DegenerateVarianceWarning", captured[0])
	}
	if dv.Term != "b1 - b2" || dv.Row != 0 {
		t.Errorf("warning fields = %+v", dv)
	}
}

func TestDimensionError_Fields(t *testing.T) {
	err := NewDimensionError("delta.Propagate", 3, 5, 1)

	var de *DimensionError
	if !As(err, &de) {
		t.Fatalf("As failed for %T", err)
	}
	if de.Expected != 3 || de.Got != 5 || de.Axis != 1 {
		t.Errorf("fields = %+v", de)
	}
	if !strings.Contains(err.Error(), "delta.Propagate") {
		t.Errorf("message %q does not name the operation", err.Error())
	}
}

func TestParseError_NamesToken(t *testing.T) {
	err := NewParseError("b1 + b9", "b9", 5, "estimate index out of range")

	var pe *ParseError
	if !As(err, &pe) {
		t.Fatalf("As failed for %T", err)
	}
	if pe.Token != "b9" {
		t.Errorf("Token = %q, want b9", pe.Token)
	}
	if !strings.Contains(err.Error(), "b9") {
		t.Errorf("message %q does not name the offending token", err.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("conf_level", "must be strictly between 0 and 1", 1.5)
	if !strings.Contains(err.Error(), "conf_level") {
		t.Errorf("message %q does not name the parameter", err.Error())
	}
}

func TestSafeExecute_RecoversPanic(t *testing.T) {
	err := SafeExecute("user callback", func() error {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected an error from a panicking callback")
	}
	var pe *PanicError
	if !As(err, &pe) {
		t.Fatalf("error has type %T, want *PanicError", err)
	}
}

func TestSafeExecute_PassesThroughError(t *testing.T) {
	want := New("plain failure")
	err := SafeExecute("user callback", func() error { return want })
	if !Is(err, want) {
		t.Errorf("error %v does not wrap the returned failure", err)
	}
}

func TestSentinels(t *testing.T) {
	if !Is(Wrap(ErrSingularMatrix, "inverting X'X"), ErrSingularMatrix) {
		t.Error("wrapped singular-matrix sentinel lost its identity")
	}
	if !Is(Wrap(ErrNoDraws, "posterior"), ErrNoDraws) {
		t.Error("wrapped no-draws sentinel lost its identity")
	}
}
