package delta

// Record is one row of an estimation result: a single quantity of interest
// with its full inferential summary.
type Record struct {
	// Term names the quantity: a contrast label, a hypothesis label, or the
	// term the quantity was derived from.
	Term string

	// Group is the grouping key for grouped quantities, empty otherwise.
	Group string

	// Estimate is the point estimate, on the post-transform scale when a
	// post transform is configured.
	Estimate float64

	// StdErr is the delta-method standard error, always on the
	// pre-transform scale. NaN in posterior mode and for degenerate
	// variances.
	StdErr float64

	// Statistic is (Estimate - Null) / StdErr on the pre-transform scale.
	Statistic float64

	// DF is the reference-distribution degrees of freedom; +Inf means the
	// normal reference was used.
	DF float64

	// PValue is the two-sided p-value against Null.
	PValue float64

	// ConfLow and ConfHigh bound the confidence (or credible) interval, on
	// the post-transform scale when a post transform is configured.
	ConfLow  float64
	ConfHigh float64

	// Null is the hypothesized value the statistic is tested against.
	Null float64
}
