package transform

import (
	"math"

	"github.com/margo-stats/margo/pkg/errors"
)

// Post is a scalar map applied to point estimates and confidence bounds
// after inference. Standard errors, statistics and p-values stay on the
// pre-transform scale: the delta method is not re-applied to the composed
// function. This mirrors the reference behavior and is a documented
// approximation; a displayed estimate of exp(x) next to a p-value computed
// for x is intentional.
type Post func(float64) float64

// Common post transforms.
var (
	// Exp maps log-scale quantities (lnratio, log-odds) back to ratios,
	// clamping the argument so the mapped bounds stay finite.
	Exp Post = errors.StabilizeExp

	// InvLogit maps log-odds to probabilities.
	InvLogit Post = func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
)
