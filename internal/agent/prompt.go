// internal/agent/prompt.go
package agent

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/action"
	"github.com/xkilldash9x/odin/internal/config"
	"github.com/xkilldash9x/odin/internal/memory"
)

const fence = "```"

const actionVocabulary = `Available actions and their params:
- click: x, y, button ("left" default, "right", "middle")
- double_click: x, y
- right_click: x, y
- move: x, y, duration (seconds, optional)
- drag: start_x, start_y, end_x, end_y, duration (optional)
- type: text, interval (seconds between keys, optional)
- key: key (e.g. "enter", "escape", "tab")
- hotkey: keys (list, e.g. ["command", "c"])
- scroll: direction ("up", "down", "left", "right") and amount, or a signed amount; x, y optional
- wait: seconds
- done: result, success (bool, default true)
- fail: reason
`

// SystemPrompt returns the configured system prompt, or the built-in one
// describing the directive format, the action vocabulary and, when the grid
// is on, the grid conventions.
func SystemPrompt(cfg config.AgentConfig) string {
	if cfg.SystemPrompt != "" {
		return cfg.SystemPrompt
	}

	var b strings.Builder
	b.WriteString("You operate a computer by looking at screenshots and issuing one action at a time.\n\n")
	b.WriteString("Reply with exactly ONE action directive as a JSON object, optionally inside a json code fence:\n")
	b.WriteString(fence + "json\n")
	b.WriteString(`{"thought": "what you see and why", "action": "<action>", "params": {...}}` + "\n")
	b.WriteString(fence + "\n\n")
	b.WriteString(actionVocabulary)

	if cfg.UseGrid {
		step := cfg.GridStep
		fmt.Fprintf(&b, "\nThe screenshot carries a grid of %dx%d px cells. Instead of x and y you may give "+
			"\"col\" and \"row\" (0-based) with optional \"offset_x\"/\"offset_y\" in [0, %d), or \"cell\", the "+
			"label printed in the cell. Without offsets the cell centre is used. For drag prefix these with "+
			"start_ and end_.\n", step, step, step)
	}

	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Aim for the centre of UI elements.\n")
	b.WriteString("- After typing into a field you may need to press enter.\n")
	b.WriteString("- If an action was blocked or failed, read the feedback and try something else.\n")
	b.WriteString("- Use done when the task is complete and fail when it cannot be completed.\n")
	return b.String()
}

// history projects memory into model conversation turns. Observation entries
// are left out since the latest screenshot travels with the current turn.
// Consecutive turns of the same role are merged.
func history(entries []memory.Entry) []schemas.Message {
	var msgs []schemas.Message
	for _, e := range entries {
		if e.Kind == memory.KindObservation {
			continue
		}
		role := schemas.RoleUser
		if e.Kind == memory.KindReasoning {
			role = schemas.RoleAssistant
		}
		content := e.Content()
		if e.Kind == memory.KindReasoning {
			content = e.Text
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content += "\n" + content
			continue
		}
		msgs = append(msgs, schemas.Message{Role: role, Content: content})
	}
	return msgs
}

// turnPrompt is the text sent alongside the current screenshot.
func turnPrompt(task string, step, maxSteps int, shot *schemas.Screenshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", task)
	fmt.Fprintf(&b, "Step %d of %d.", step, maxSteps)
	if shot != nil {
		fmt.Fprintf(&b, " The attached screenshot is %dx%d px.", shot.Width, shot.Height)
		if shot.GridStep > 0 {
			g := action.Grid{Step: shot.GridStep, Bounds: action.NewRect(0, 0, shot.Width, shot.Height)}
			fmt.Fprintf(&b, " Grid: %d columns x %d rows of %d px, cells labelled 1 to %d row by row.",
				g.Columns(), g.Rows(), shot.GridStep, g.Columns()*g.Rows())
		}
	}
	b.WriteString("\nWhat is the next action? Reply with one JSON action directive.")
	return b.String()
}
