package ui

import (
	"fmt"
	"strings"
)

// ErrorMessage is a structured, actionable failure report: what went
// wrong, why it might have, and what to do about it.
type ErrorMessage struct {
	Problem string   // one-line problem statement
	Causes  []string // likely causes, most probable first
	Actions []string // concrete steps to resolve
}

// Format renders the message with the given color config. Plain text
// when colors are disabled (NO_COLOR or dumb terminal).
func (e ErrorMessage) Format(c *ColorConfig) string {
	var b strings.Builder
	b.WriteString(c.Error("✗ "))
	b.WriteString(c.Header("Error"))
	b.WriteString("\n")
	if e.Problem != "" {
		fmt.Fprintf(&b, "  %s: %s\n", c.Label("Problem"), e.Problem)
	}
	if len(e.Causes) > 0 {
		fmt.Fprintf(&b, "  %s:\n", c.Label("Possible causes"))
		for _, cause := range e.Causes {
			fmt.Fprintf(&b, "   • %s\n", cause)
		}
	}
	if len(e.Actions) > 0 {
		fmt.Fprintf(&b, "  %s:\n", c.Label("Try"))
		for _, action := range e.Actions {
			fmt.Fprintf(&b, "   → %s\n", action)
		}
	}
	return b.String()
}

// PrintError prints the structured error using the current theme.
func PrintError(e ErrorMessage) {
	fmt.Println(e.Format(NewColorConfig()))
}
