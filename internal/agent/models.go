// internal/agent/models.go
package agent

import (
	"time"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/action"
	"github.com/xkilldash9x/odin/internal/memory"
	"github.com/xkilldash9x/odin/internal/safety"
)

// State is the agent's current phase within its observe/reason/act loop.
type State string

const (
	StateInit        State = "INIT"         // Validating config and seeding memory.
	StateObserving   State = "OBSERVING"    // Capturing the screen.
	StateReasoning   State = "REASONING"    // Waiting on the model.
	StateParsing     State = "PARSING"      // Turning the reply into an action.
	StateSafetyCheck State = "SAFETY_CHECK" // Asking the gate for a verdict.
	StateExecuting   State = "EXECUTING"    // The backend is performing the action.
	StateEvaluating  State = "EVALUATING"   // Deciding whether to continue.
	StateTerminated  State = "TERMINATED"   // The run has produced its result.
)

// IsTerminal reports whether no further transitions follow s.
func (s State) IsTerminal() bool { return s == StateTerminated }

// RunResult is the single terminal output of a run.
type RunResult struct {
	RunID           string        `json:"run_id"`
	Task            string        `json:"task"`
	Success         bool          `json:"success"`
	Message         string        `json:"message"`
	TotalSteps      int           `json:"total_steps"`
	ActionsExecuted int           `json:"actions_executed"`
	Duration        time.Duration `json:"duration"`
	// FailureCode classifies the failure. Empty on success.
	FailureCode ErrorCode      `json:"failure_code,omitempty"`
	History     []ActionRecord `json:"history,omitempty"`
	Transcript  []memory.Entry `json:"transcript,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
}

// ActionRecord is one action that reached the execution backend, or the
// terminal done/fail action that ended the run.
type ActionRecord struct {
	Step    int                      `json:"step"`
	Action  action.Action            `json:"action"`
	Outcome schemas.ExecutionOutcome `json:"outcome"`
	At      time.Time                `json:"at"`
}

// StepEvent is delivered to a StepHook after each completed step.
type StepEvent struct {
	Step    int
	State   State
	Action  action.Action
	Verdict safety.Verdict
	Outcome *schemas.ExecutionOutcome
}

// StepHook observes step completion. It runs on the loop goroutine.
type StepHook func(StepEvent)
