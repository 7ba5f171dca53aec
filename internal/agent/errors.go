// internal/agent/errors.go
package agent

import (
	"errors"
	"fmt"
)

// ErrorCode classifies why a run ended without success.
type ErrorCode string

const (
	// -- Recoverable inside a step; fatal only once a retry cap is spent --
	ErrCodeParseFailure     ErrorCode = "PARSE_FAILURE"
	ErrCodeSafetyDenial     ErrorCode = "SAFETY_DENIAL"
	ErrCodeExecutionFailure ErrorCode = "EXECUTION_FAILURE"

	// -- Fatal to the run --
	ErrCodeCollaboratorFailure ErrorCode = "COLLABORATOR_FAILURE"
	ErrCodeBudgetExhausted     ErrorCode = "BUDGET_EXHAUSTED"
	ErrCodeCancelled           ErrorCode = "CANCELLED"
	ErrCodeInvalidConfig       ErrorCode = "INVALID_CONFIG"

	// ErrCodeTaskFailed means the model itself gave up with a fail action.
	ErrCodeTaskFailed ErrorCode = "TASK_FAILED"
)

var (
	// ErrRunning is returned by Reset while a run is in progress.
	ErrRunning = errors.New("agent: a run is in progress")
	// ErrNilCollaborator is returned by New when a collaborator is missing.
	ErrNilCollaborator = errors.New("agent: collaborator must not be nil")
)

// collaboratorPanic wraps a value recovered from a collaborator call.
type collaboratorPanic struct {
	collaborator string
	value        interface{}
}

func (p *collaboratorPanic) Error() string {
	return fmt.Sprintf("%s panicked: %v", p.collaborator, p.value)
}
