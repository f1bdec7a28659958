package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/mcpax/mcpax-cli/internal/modrinth"
	"github.com/mcpax/mcpax-cli/internal/resolver"
	"github.com/mcpax/mcpax-cli/internal/syncer"
	ui "github.com/mcpax/mcpax-cli/internal/ui"
)

// getPrinter returns a UI printer bound to the current --output flag.
func getPrinter() ui.Printer { return ui.NewPrinterFromGlobal(flagOutput) }

// isTTY reports whether stdout is an interactive terminal.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// decisionLabel renders a syncer decision for humans.
func decisionLabel(d syncer.Decision) string {
	switch d {
	case syncer.DecisionUpToDate:
		return "up-to-date"
	case syncer.DecisionInstall:
		return "installed"
	case syncer.DecisionUpdate:
		return "updated"
	case syncer.DecisionIncompatible:
		return "incompatible"
	default:
		return "failed"
	}
}

// planLabel renders a plan decision (nothing applied yet).
func planLabel(d syncer.Decision) string {
	switch d {
	case syncer.DecisionUpToDate:
		return "up-to-date"
	case syncer.DecisionInstall:
		return "not installed"
	case syncer.DecisionUpdate:
		return "outdated"
	case syncer.DecisionIncompatible:
		return "incompatible"
	default:
		return "check failed"
	}
}

// updateDirection compares an installed version label against the sync
// target and names the move: "upgrade" when the target is newer,
// "downgrade" when it is older, empty when they match or either side
// is unknown.
func updateDirection(installed, target string) string {
	if installed == "" || target == "" {
		return ""
	}
	switch resolver.CompareLabels(installed, target) {
	case -1:
		return "upgrade"
	case 1:
		return "downgrade"
	default:
		return ""
	}
}

// describeCatalogErr turns a catalog error into an actionable message.
func describeCatalogErr(slug string, err error) ui.ErrorMessage {
	msg := ui.ErrorMessage{Problem: err.Error()}
	switch {
	case modrinth.IsNotFound(err):
		msg.Problem = fmt.Sprintf("project %q not found on Modrinth", slug)
		msg.Actions = []string{"Check the slug spelling", "Try 'mcpax search " + slug + "'"}
	case modrinth.IsRetryable(err):
		msg.Causes = []string{"Catalog temporarily unavailable or network problem"}
		msg.Actions = []string{"Retry in a few minutes", "Run 'mcpax doctor' to check connectivity"}
	}
	return msg
}

// rateLimitHint prints remaining request budget when it is running low.
func rateLimitHint(p ui.Printer, c *modrinth.Client) {
	if info, ok := c.RateLimit(); ok && info.Limit > 0 && info.Remaining < info.Limit/10 {
		p.Warn(fmt.Sprintf("API rate limit nearly exhausted: %d/%d requests left", info.Remaining, info.Limit))
	}
}
