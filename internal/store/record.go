package store

import (
	"time"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/action"
	"github.com/xkilldash9x/odin/internal/agent"
	"github.com/xkilldash9x/odin/internal/memory"
)

// RunRecord is the persisted form of an agent.RunResult.
type RunRecord struct {
	RunID           string
	Task            string
	Success         bool
	Message         string
	FailureCode     agent.ErrorCode
	TotalSteps      int
	ActionsExecuted int
	Duration        time.Duration
	StartedAt       time.Time
	FinishedAt      time.Time
	Entries         []RunEntry
}

// RunEntry is one row of agent_run_entries.
type RunEntry struct {
	Seq     uint64
	Kind    string
	Step    int
	Content string
	Action  *action.Action
	Outcome *schemas.ExecutionOutcome
	At      time.Time
}

// NewRunRecord converts a finished run. The transcript is preferred; when the
// run kept none, the action history is stored instead.
func NewRunRecord(res agent.RunResult) RunRecord {
	rec := RunRecord{
		RunID:           res.RunID,
		Task:            res.Task,
		Success:         res.Success,
		Message:         res.Message,
		FailureCode:     res.FailureCode,
		TotalSteps:      res.TotalSteps,
		ActionsExecuted: res.ActionsExecuted,
		Duration:        res.Duration,
		StartedAt:       res.StartedAt,
		FinishedAt:      res.FinishedAt,
	}

	if len(res.Transcript) > 0 {
		rec.Entries = make([]RunEntry, 0, len(res.Transcript))
		for _, e := range res.Transcript {
			rec.Entries = append(rec.Entries, fromTranscript(e))
		}
		return rec
	}

	rec.Entries = make([]RunEntry, 0, len(res.History))
	for i, h := range res.History {
		a := h.Action
		entry := RunEntry{
			Seq:     uint64(i + 1),
			Kind:    string(memory.KindAction),
			Step:    h.Step,
			Content: a.Summary(),
			Action:  &a,
			At:      h.At,
		}
		if h.Outcome.Status != "" {
			o := h.Outcome
			entry.Outcome = &o
		}
		rec.Entries = append(rec.Entries, entry)
	}
	return rec
}

func fromTranscript(e memory.Entry) RunEntry {
	content := e.Text
	if content == "" {
		switch {
		case e.Action != nil:
			content = e.Action.Summary()
		case e.ScreenshotID != "":
			content = "screenshot " + e.ScreenshotID
		}
	}
	return RunEntry{
		Seq:     e.Seq,
		Kind:    string(e.Kind),
		Step:    e.Step,
		Content: content,
		Action:  e.Action,
		Outcome: e.Outcome,
		At:      e.At,
	}
}
