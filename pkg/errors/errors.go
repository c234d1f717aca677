// Package errors provides the structured error handling and warning system
// used across the margo estimation engine. Fatal conditions (malformed
// hypothesis specifications, dimension mismatches, failed model evaluations)
// are reported as typed errors carrying stack traces; non-fatal numerical
// degeneracies (rank-deficient covariance, failed perturbation columns) are
// surfaced through the warning hook and recorded as NaN in the output.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// Default handler logs to standard error.
		log.Printf("margo-warning: %v\n", w)
	}
	// zerolog sink, injected lazily to avoid a circular import with pkg/log.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler sets the process-wide warning handler. Warnings are
// advisory: emitting one never aborts an estimation. Callers that want to
// treat degeneracies as hard failures can install a handler that panics or
// records the warning for later inspection.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // ignore warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog-backed warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. The zerolog sink takes precedence when installed;
// otherwise the plain handler runs.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types (non-fatal)
//
// ===========================================================================

// DegenerateVarianceWarning reports a quantity whose delta-method variance
// came out negative or undefined, typically because the covariance matrix is
// rank-deficient in the direction of that quantity's Jacobian row. The
// affected standard error is set to NaN; the estimate itself is unaffected.
type DegenerateVarianceWarning struct {
	Term     string
	Row      int
	Variance float64
}

func (w *DegenerateVarianceWarning) Error() string {
	return fmt.Sprintf("degenerate variance %g for term %q (row %d); standard error set to NaN",
		w.Variance, w.Term, w.Row)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *DegenerateVarianceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("term", w.Term).
		Int("row", w.Row).
		Float64("variance", w.Variance).
		Str("type", "DegenerateVarianceWarning")
}

// NewDegenerateVarianceWarning creates a new DegenerateVarianceWarning.
func NewDegenerateVarianceWarning(term string, row int, variance float64) *DegenerateVarianceWarning {
	return &DegenerateVarianceWarning{Term: term, Row: row, Variance: variance}
}

// JacobianColumnWarning reports a coefficient whose perturbed evaluation
// failed under lenient differentiation. The corresponding Jacobian column is
// filled with NaN and the computation continues.
type JacobianColumnWarning struct {
	Coefficient string
	Index       int
	Err         error
}

func (w *JacobianColumnWarning) Error() string {
	return fmt.Sprintf("perturbed evaluation failed for coefficient %q (column %d): %v; column set to NaN",
		w.Coefficient, w.Index, w.Err)
}

func (w *JacobianColumnWarning) Unwrap() error { return w.Err }

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *JacobianColumnWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("coefficient", w.Coefficient).
		Int("column", w.Index).
		AnErr("cause", w.Err).
		Str("type", "JacobianColumnWarning")
}

// NewJacobianColumnWarning creates a new JacobianColumnWarning.
func NewJacobianColumnWarning(coefficient string, index int, err error) *JacobianColumnWarning {
	return &JacobianColumnWarning{Coefficient: coefficient, Index: index, Err: err}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// NotFittedError is returned when Predict or Covariance is called on a model
// that has not been fitted.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("margo: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError reports a mismatch between expected and actual dimensions:
// covariance matrix vs coefficient vector, weight vector vs estimate count,
// Jacobian columns vs parameters.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns
}

func (e *DimensionError) Error() string {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("margo: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError reports a configuration value that failed validation:
// a confidence level outside (0,1), an unknown transform name, an unsupported
// option combination. Always fatal.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("margo: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError reports an argument whose value is unusable in context.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("margo: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ParseError reports a malformed hypothesis formula. Token holds the exact
// offending token and Position its byte offset in the formula string.
type ParseError struct {
	Formula  string
	Token    string
	Position int
	Reason   string
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("margo: cannot parse hypothesis %q: %s at token %q (offset %d)",
			e.Formula, e.Reason, e.Token, e.Position)
	}
	return fmt.Sprintf("margo: cannot parse hypothesis %q: %s", e.Formula, e.Reason)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ParseError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("formula", e.Formula).
		Str("token", e.Token).
		Int("position", e.Position).
		Str("reason", e.Reason).
		Str("type", "ParseError")
}

// NewParseError creates a ParseError with a stack trace attached.
func NewParseError(formula, token string, position int, reason string) error {
	err := &ParseError{Formula: formula, Token: token, Position: position, Reason: reason}
	return errors.WithStack(err)
}

// EvaluationError reports a failed model prediction. At identifies where the
// failure occurred: "base" for the fitted coefficient vector (always fatal),
// or the name of the perturbed coefficient (fatal under strict
// differentiation, a JacobianColumnWarning under lenient).
type EvaluationError struct {
	Op  string
	At  string
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("margo: %s: model evaluation failed at %s: %v", e.Op, e.At, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *EvaluationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("at", e.At).
		AnErr("cause", e.Err).
		Str("type", "EvaluationError")
}

// NewEvaluationError creates an EvaluationError with a stack trace attached.
func NewEvaluationError(op, at string, err error) error {
	evalErr := &EvaluationError{Op: op, At: at, Err: err}
	return errors.WithStack(evalErr)
}

// ResourceLimitError reports a request that exceeds a hard safety threshold,
// such as a counterfactual grid whose combinatorial size would exhaust
// memory. Always fatal.
type ResourceLimitError struct {
	Op        string
	Resource  string
	Requested int64
	Limit     int64
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("margo: %s: requested %s of %d exceeds limit %d", e.Op, e.Resource, e.Requested, e.Limit)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ResourceLimitError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("resource", e.Resource).
		Int64("requested", e.Requested).
		Int64("limit", e.Limit).
		Str("type", "ResourceLimitError")
}

// NewResourceLimitError creates a ResourceLimitError with a stack trace attached.
func NewResourceLimitError(op, resource string, requested, limit int64) error {
	err := &ResourceLimitError{Op: op, Resource: resource, Requested: requested, Limit: limit}
	return errors.WithStack(err)
}

// NumericalInstabilityError reports NaN, Inf, overflow or underflow detected
// during a numerical operation.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Context   map[string]interface{}
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("margo: numerical instability detected in %s. Values: [%s]", e.Operation, valStr)
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a
// stack trace attached.
func NewNumericalInstabilityError(operation string, values []float64) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Context:   make(map[string]interface{}),
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack attaches a stack trace to an error.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common sentinel errors
//
// ===========================================================================

var (
	// ErrEmptyData is returned when an empty dataset is supplied.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when a matrix inversion fails.
	ErrSingularMatrix = New("singular matrix")

	// ErrNoDraws is returned when posterior summaries are requested from a
	// model that supplies no posterior draws.
	ErrNoDraws = New("model supplies no posterior draws")
)
