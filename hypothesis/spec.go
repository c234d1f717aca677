// Package hypothesis resolves hypothesis specifications into linear or
// non-linear combinations of estimates.
//
// A specification can be a numeric weight vector, a weight matrix of
// simultaneous combinations, a formula string over b1..bN placeholders and
// estimate term labels, or a named pattern that mechanically generates a
// contrast matrix (pairwise, reference, sequential, ...). Resolution maps
// both the estimate vector and its Jacobian, so delta-method standard
// errors of the combined quantities come out of the same propagation core
// as everything else.
package hypothesis

import (
	"gonum.org/v1/gonum/mat"
)

// Spec is a hypothesis specification. A nil Spec means identity: estimates
// pass through unchanged.
type Spec interface {
	isSpec()
}

// Weights is a single linear combination: one weight per current estimate.
type Weights []float64

func (Weights) isSpec() {}

// WeightMatrix holds K simultaneous linear combinations as columns of an
// N-by-K matrix. Labels, when non-nil, names the K output rows; positional
// labels are generated otherwise.
type WeightMatrix struct {
	W      *mat.Dense
	Labels []string
}

func (WeightMatrix) isSpec() {}

// Formula is an arithmetic expression over the current estimates, written
// with b1..bN positional placeholders or estimate term labels (backtick
// delimited when they contain non-identifier characters). An optional
// "= rhs" clause sets the null value when rhs is constant, or folds rhs into
// the combination as lhs - rhs when it references estimates.
//
// Examples: "b1 - b2", "b1 = b2", "b2 / b1 = 1", "(b1 + b2) / 2".
// There is no function-call syntax; the grammar is limited to + - * /,
// parentheses, numbers and estimate references.
type Formula string

func (Formula) isSpec() {}

// Pattern names a mechanically generated contrast matrix over the current
// estimates.
type Pattern string

func (Pattern) isSpec() {}

const (
	// Pairwise generates one contrast per unordered pair (i, j), i < j:
	// estimate_i - estimate_j.
	Pairwise Pattern = "pairwise"
	// RevPairwise is Pairwise with the signs flipped.
	RevPairwise Pattern = "revpairwise"
	// Sequential contrasts each estimate with its predecessor.
	Sequential Pattern = "sequential"
	// Reference contrasts every estimate against the first.
	Reference Pattern = "reference"
	// MeanDev contrasts each estimate against the grand mean.
	MeanDev Pattern = "meandev"
	// MeanOtherDev contrasts each estimate against the mean of the others.
	MeanOtherDev Pattern = "meanotherdev"
)
