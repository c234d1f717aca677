// Package log defines standard attribute keys for estimation operations.
//
// Using these keys consistently makes runs of the engine easy to filter and
// compare: which operation ran, over how many rows and parameters, with how
// many workers, and how long the Jacobian took.
package log

// Operation context.
const (
	// OperationKey names the top-level operation.
	// Standard values: "predictions", "comparisons", "slopes", "hypotheses".
	OperationKey = "op"

	// ModelNameKey identifies the model adapter in use.
	// Examples: "OLS", "external".
	ModelNameKey = "model.name"

	// TransformKey names the pre-transform applied to raw predictions.
	// Examples: "difference", "ratioavg", "dydx".
	TransformKey = "transform"

	// HypothesisKey carries the hypothesis specification, when present.
	HypothesisKey = "hypothesis"
)

// Data shape.
const (
	// RowsKey is the number of data rows entering the prediction function.
	RowsKey = "data.rows"

	// ParamsKey is the number of free model coefficients.
	ParamsKey = "model.params"

	// QuantitiesKey is the number of quantities of interest produced.
	QuantitiesKey = "estimates.count"

	// DrawsKey is the number of posterior draws, for draw-based models.
	DrawsKey = "model.draws"
)

// Performance.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// WorkersKey records the worker count used for the Jacobian loop.
	WorkersKey = "perf.workers"

	// EvaluationsKey records how many prediction-function evaluations ran.
	EvaluationsKey = "perf.evaluations"
)
