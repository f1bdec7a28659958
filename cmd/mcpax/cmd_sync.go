package main

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mcpax/mcpax-cli/internal/download"
	"github.com/mcpax/mcpax-cli/internal/exitcodes"
	"github.com/mcpax/mcpax-cli/internal/syncer"
	ui "github.com/mcpax/mcpax-cli/internal/ui"
)

func init() {
	var syncDryRun bool

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Install/update everything tracked",
		Long:  "Resolve the best compatible version for every tracked project, download and verify what changed, and place the files into the instance.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleSync(cmd, newDeps(), syncDryRun)
		},
	}
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "n", false, "Resolve and report without touching any file")
	rootCmd.AddCommand(syncCmd)
}

func handleSync(cmd *cobra.Command, d *Deps, dryRun bool) error {
	p := d.Printer
	if err := d.requireConfig(); err != nil {
		return exitcodes.PreconditionError(err.Error())
	}
	if d.TrkErr != nil {
		return fmt.Errorf("load tracked projects: %w", d.TrkErr)
	}
	if len(d.Tracked.Projects) == 0 {
		p.Info("No projects tracked. Add one with 'mcpax add <slug>'")
		return nil
	}

	if dryRun {
		return syncDryRunOutput(cmd, d)
	}

	var sum syncer.Summary
	var err error
	if isTTY() && !p.IsJSON() && !ui.GetGlobal().Quiet {
		sum, err = runSyncTUI(cmd, d)
	} else {
		sum, err = runSyncPlain(cmd, d)
	}
	if err != nil {
		return exitcodes.WrapError(exitcodes.ValidationError, "sync", err)
	}

	printSyncSummary(d, sum)
	if sum.Failed > 0 {
		return silentErr{exitcodes.PartialFailureErrf("%d of %d project(s) failed", sum.Failed, len(sum.Outcomes))}
	}
	return nil
}

// runSyncPlain streams line-per-outcome output (non-TTY, --quiet, JSON).
// Download progress is logged as whole lines at 10% steps so concurrent
// workers never garble each other.
func runSyncPlain(cmd *cobra.Command, d *Deps) (syncer.Summary, error) {
	p := d.Printer

	var mu sync.Mutex
	bars := map[string]*ui.ProgressBar{}
	var progress download.ProgressFunc
	if !p.IsJSON() && !ui.GetGlobal().Quiet {
		progress = func(e download.Event) {
			if e.Phase != download.PhaseDownload {
				return
			}
			mu.Lock()
			bar, ok := bars[e.Slug]
			if !ok {
				bar = ui.NewProgressBar(cmd.OutOrStdout(), e.Slug, e.Total)
				bars[e.Slug] = bar
			}
			bar.Update(e.Current)
			mu.Unlock()
		}
	}

	report := func(o syncer.Outcome) {
		mu.Lock()
		if bar, ok := bars[o.Slug]; ok {
			bar.Finish()
			delete(bars, o.Slug)
		}
		mu.Unlock()
		switch {
		case o.Err != nil:
			p.Error(fmt.Sprintf("%s: %v", o.Slug, o.Err))
		case o.Decision == syncer.DecisionIncompatible:
			p.Warn(fmt.Sprintf("%s: no compatible version", o.Slug))
		case o.Installed != nil:
			p.Success(fmt.Sprintf("%s %s (%s)", o.Slug, decisionLabel(o.Decision), o.Installed.VersionNumber))
		default:
			p.Success(fmt.Sprintf("%s %s", o.Slug, decisionLabel(o.Decision)))
		}
	}
	s := d.newSyncer(report, progress)
	return s.Run(cmd.Context(), d.Tracked.Projects)
}

// runSyncTUI drives the bubbletea model while the synchronizer runs in
// the background, feeding it progress and outcome messages.
func runSyncTUI(cmd *cobra.Command, d *Deps) (syncer.Summary, error) {
	slugs := make([]string, 0, len(d.Tracked.Projects))
	for _, proj := range d.Tracked.Projects {
		slugs = append(slugs, proj.Slug)
	}
	title := fmt.Sprintf("Syncing %d project(s) for Minecraft %s / %s", len(slugs), d.Cfg.MinecraftVersion, d.Cfg.Loader)
	prog := tea.NewProgram(ui.NewSyncModel(title, slugs))

	report := func(o syncer.Outcome) {
		msg := ui.SyncOutcomeMsg{Slug: o.Slug, Decision: decisionLabel(o.Decision), Err: o.Err}
		if o.Installed != nil {
			msg.Detail = o.Installed.VersionNumber
		}
		prog.Send(msg)
	}
	progress := func(e download.Event) {
		if e.Phase != download.PhaseDownload {
			return
		}
		prog.Send(ui.SyncProgressMsg{Slug: e.Slug, Current: e.Current, Total: e.Total})
	}
	s := d.newSyncer(report, progress)

	var (
		sum     syncer.Summary
		syncErr error
		wg      sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sum, syncErr = s.Run(cmd.Context(), d.Tracked.Projects)
		prog.Send(ui.SyncDoneMsg{})
	}()

	if _, err := prog.Run(); err != nil {
		// TUI failure must not hide the sync result; fall through and
		// wait for the run to finish.
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}
	wg.Wait()
	ui.ResetTerminalAfterTUI()
	return sum, syncErr
}

func syncDryRunOutput(cmd *cobra.Command, d *Deps) error {
	p := d.Printer
	s := d.newSyncer(nil, nil)
	plans, err := s.Check(cmd.Context(), d.Tracked.Projects)
	if err != nil {
		return exitcodes.WrapError(exitcodes.ValidationError, "dry run", err)
	}
	for _, plan := range plans {
		label := planLabel(plan.Decision)
		switch plan.Decision {
		case syncer.DecisionInstall:
			p.Info(fmt.Sprintf("%s: would install %s", plan.Project.Slug, plan.Target.VersionNumber))
		case syncer.DecisionUpdate:
			from := "?"
			if plan.Current != nil {
				from = plan.Current.VersionNumber
			}
			p.Info(fmt.Sprintf("%s: would update %s -> %s", plan.Project.Slug, from, plan.Target.VersionNumber))
		case syncer.DecisionUpToDate:
			p.Success(fmt.Sprintf("%s: up-to-date", plan.Project.Slug))
		case syncer.DecisionIncompatible:
			p.Warn(fmt.Sprintf("%s: incompatible", plan.Project.Slug))
		default:
			p.Error(fmt.Sprintf("%s: %s (%v)", plan.Project.Slug, label, plan.Err))
		}
	}
	return nil
}

func printSyncSummary(d *Deps, sum syncer.Summary) {
	p := d.Printer
	if p.IsJSON() {
		type outcomeJSON struct {
			Slug     string `json:"slug"`
			Decision string `json:"decision"`
			Version  string `json:"version,omitempty"`
			Error    string `json:"error,omitempty"`
		}
		out := struct {
			UpToDate     int           `json:"up_to_date"`
			Installed    int           `json:"installed"`
			Updated      int           `json:"updated"`
			Incompatible int           `json:"incompatible"`
			Failed       int           `json:"failed"`
			Orphans      []string      `json:"orphans,omitempty"`
			Outcomes     []outcomeJSON `json:"outcomes"`
		}{
			UpToDate:     sum.UpToDate,
			Installed:    sum.Installed,
			Updated:      sum.Updated,
			Incompatible: sum.Incompatible,
			Failed:       sum.Failed,
		}
		for _, o := range sum.Orphans {
			out.Orphans = append(out.Orphans, o.Slug)
		}
		for _, o := range sum.Outcomes {
			oj := outcomeJSON{Slug: o.Slug, Decision: decisionLabel(o.Decision)}
			if o.Installed != nil {
				oj.Version = o.Installed.VersionNumber
			}
			if o.Err != nil {
				oj.Error = o.Err.Error()
			}
			out.Outcomes = append(out.Outcomes, oj)
		}
		p.JSON(out)
		return
	}

	fmt.Println()
	parts := fmt.Sprintf("%d up-to-date, %d installed, %d updated, %d incompatible, %d failed",
		sum.UpToDate, sum.Installed, sum.Updated, sum.Incompatible, sum.Failed)
	switch {
	case sum.Failed > 0:
		p.Error(parts)
	case sum.Incompatible > 0:
		p.Warn(parts)
	default:
		p.Success(parts)
	}
	for _, o := range sum.Orphans {
		p.Warn(fmt.Sprintf("%s is installed but no longer tracked (delete %s if unwanted)", o.Slug, o.FilePath))
	}
	rateLimitHint(p, d.Client)
}
