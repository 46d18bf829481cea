package cycle

// Outcome is how an update cycle ended.
type Outcome uint8

const (
	// Unchanged means the remote document matched the local copy.
	Unchanged Outcome = iota
	// Updated means a new document was written and accepted by the post-update hook.
	Updated
	// Failed means a step failed; Result.Err holds the reason.
	Failed
)

// String returns the lowercase outcome name.
func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one cycle.
type Result struct {
	// Outcome is how the cycle ended.
	Outcome Outcome
	// Err is the failure reason chain; nil unless Outcome is Failed.
	Err error
}

// NewUnchanged returns an Unchanged result.
func NewUnchanged() Result {
	return Result{Outcome: Unchanged}
}

// NewUpdated returns an Updated result.
func NewUpdated() Result {
	return Result{Outcome: Updated}
}

// NewFailed returns a Failed result carrying err.
func NewFailed(err error) Result {
	return Result{
		Outcome: Failed,
		Err:     err,
	}
}

// IsFailed reports whether the cycle failed.
func (r Result) IsFailed() bool {
	return r.Outcome == Failed
}
