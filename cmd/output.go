package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/xkilldash9x/odin/internal/agent"
	"github.com/xkilldash9x/odin/internal/store"
)

// stepPrinter reports each completed step on out.
func stepPrinter(out io.Writer) agent.StepHook {
	return func(ev agent.StepEvent) {
		status := "ok"
		if ev.Outcome != nil && !ev.Outcome.Succeeded() {
			status = "failed: " + ev.Outcome.Reason
		}
		fmt.Fprintf(out, "[step %d] %s (%s)\n", ev.Step, ev.Action.Summary(), status)
	}
}

// printResult writes the final summary of a run.
func printResult(out io.Writer, res agent.RunResult) {
	fmt.Fprintln(out)
	if res.Success {
		fmt.Fprintln(out, "Task completed.")
	} else {
		fmt.Fprintf(out, "Task failed [%s].\n", res.FailureCode)
	}
	if res.Message != "" {
		fmt.Fprintf(out, "  Message: %s\n", res.Message)
	}
	fmt.Fprintf(out, "  Steps: %d  Actions: %d  Duration: %s\n", res.TotalSteps, res.ActionsExecuted, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  Run ID: %s\n", res.RunID)
}

// printRuns renders stored run summaries as a table.
func printRuns(out io.Writer, runs []store.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRESULT\tSTEPS\tDURATION\tTASK")
	for _, r := range runs {
		result := "success"
		if !r.Success {
			result = string(r.FailureCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), result, r.TotalSteps, r.Duration.Round(time.Millisecond), truncate(r.Task, 60))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
