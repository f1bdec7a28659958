package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcpax/mcpax-cli/internal/exitcodes"
	"github.com/mcpax/mcpax-cli/internal/syncer"
	ui "github.com/mcpax/mcpax-cli/internal/ui"
)

func init() {
	var statusStrict bool

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-project sync status without changing files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleStatus(cmd, newDeps(), statusStrict)
		},
	}
	statusCmd.Flags().BoolVar(&statusStrict, "strict", false, "Exit non-zero when anything needs action or failed")
	rootCmd.AddCommand(statusCmd)
}

type statusEntry struct {
	Slug      string `json:"slug"`
	Status    string `json:"status"`
	Installed string `json:"installed,omitempty"`
	Target    string `json:"target,omitempty"`
	Direction string `json:"direction,omitempty"`
	Error     string `json:"error,omitempty"`
}

func handleStatus(cmd *cobra.Command, d *Deps, strict bool) error {
	p := d.Printer
	if err := d.requireConfig(); err != nil {
		return exitcodes.PreconditionError(err.Error())
	}
	if d.TrkErr != nil {
		return fmt.Errorf("load tracked projects: %w", d.TrkErr)
	}

	s := d.newSyncer(nil, nil)
	plans, err := s.Check(cmd.Context(), d.Tracked.Projects)
	if err != nil {
		return exitcodes.WrapError(exitcodes.ValidationError, "status check", err)
	}

	entries := make([]statusEntry, 0, len(plans))
	actionable := 0
	for _, plan := range plans {
		e := statusEntry{Slug: plan.Project.Slug, Status: planLabel(plan.Decision)}
		if plan.Current != nil {
			e.Installed = plan.Current.VersionNumber
		}
		if plan.Target != nil {
			e.Target = plan.Target.VersionNumber
		}
		if plan.Err != nil {
			e.Error = plan.Err.Error()
		}
		if e.Error == "" {
			e.Direction = updateDirection(e.Installed, e.Target)
		}
		if plan.Decision != syncer.DecisionUpToDate {
			actionable++
		}
		entries = append(entries, e)
	}

	if p.IsJSON() {
		p.JSON(entries)
	} else if len(entries) == 0 {
		p.Info("No projects tracked. Add one with 'mcpax add <slug>'")
	} else {
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			installed := e.Installed
			if installed == "" {
				installed = "-"
			}
			target := e.Target
			if target == "" {
				target = "-"
			}
			detail := e.Error
			if detail == "" {
				detail = e.Direction
			}
			rows = append(rows, []string{e.Slug, e.Status, installed, target, detail})
		}
		fmt.Print(ui.Table(p.Colors, []string{"PROJECT", "STATUS", "INSTALLED", "LATEST", "DETAIL"}, rows, nil))
	}
	rateLimitHint(p, d.Client)

	if strict && actionable > 0 {
		return silentErr{exitcodes.ValidationErrf("%d project(s) need attention", actionable)}
	}
	return nil
}
