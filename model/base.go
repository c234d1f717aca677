package model

// fitState tracks whether a model has been fitted.
type fitState int

const (
	notFitted fitState = iota
	fitted
)

// BaseEstimator is embedded by fitted-model implementations to track
// training state.
type BaseEstimator struct {
	state fitState
}

// IsFitted reports whether the model has been fitted.
func (e *BaseEstimator) IsFitted() bool {
	return e.state == fitted
}

// SetFitted marks the model as fitted.
func (e *BaseEstimator) SetFitted() {
	e.state = fitted
}

// Reset returns the model to its unfitted state.
func (e *BaseEstimator) Reset() {
	e.state = notFitted
}
