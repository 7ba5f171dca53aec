package schemas

import "time"

// ExecutionStatus is the result of asking the backend to perform an action.
type ExecutionStatus string

const (
	ExecutionSucceeded ExecutionStatus = "succeeded"
	ExecutionFailed    ExecutionStatus = "failed"
)

// ExecutionOutcome reports whether the backend performed an action.
type ExecutionOutcome struct {
	Status   ExecutionStatus `json:"status"`
	Reason   string          `json:"reason,omitempty"` // Set when Status is failed.
	Duration time.Duration   `json:"duration"`
}

// Succeeded reports whether the action was performed.
func (o ExecutionOutcome) Succeeded() bool { return o.Status == ExecutionSucceeded }

// Success builds a succeeded outcome.
func Success(d time.Duration) ExecutionOutcome {
	return ExecutionOutcome{Status: ExecutionSucceeded, Duration: d}
}

// Failure builds a failed outcome with a reason.
func Failure(reason string, d time.Duration) ExecutionOutcome {
	return ExecutionOutcome{Status: ExecutionFailed, Reason: reason, Duration: d}
}
