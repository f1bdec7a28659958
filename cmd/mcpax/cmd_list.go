package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcpax/mcpax-cli/internal/exitcodes"
	ui "github.com/mcpax/mcpax-cli/internal/ui"
)

func init() {
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tracked projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleList(newDeps())
		},
	}
	rootCmd.AddCommand(listCmd)
}

type listEntry struct {
	Slug      string `json:"slug"`
	Pin       string `json:"pin,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Installed string `json:"installed,omitempty"`
	File      string `json:"file,omitempty"`
}

func handleList(d *Deps) error {
	p := d.Printer
	if err := d.requireConfig(); err != nil {
		return exitcodes.PreconditionError(err.Error())
	}
	if d.TrkErr != nil {
		return fmt.Errorf("load tracked projects: %w", d.TrkErr)
	}

	snap, err := d.Store.Load()
	if err != nil {
		return exitcodes.WrapError(exitcodes.ValidationError, "read state", err)
	}

	entries := make([]listEntry, 0, len(d.Tracked.Projects))
	for _, proj := range d.Tracked.Projects {
		e := listEntry{Slug: proj.Slug, Pin: proj.Version, Channel: string(proj.Channel)}
		if rec, ok := snap.Files[proj.Slug]; ok {
			e.Installed = rec.VersionNumber
			e.File = rec.Filename
		}
		entries = append(entries, e)
	}

	if p.IsJSON() {
		p.JSON(entries)
		return nil
	}

	if len(entries) == 0 {
		p.Info("No projects tracked. Add one with 'mcpax add <slug>'")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		installed := e.Installed
		if installed == "" {
			installed = "-"
		}
		pin := e.Pin
		if pin == "" {
			pin = "latest"
		}
		channel := e.Channel
		if channel == "" {
			channel = string(d.Cfg.Channel)
		}
		rows = append(rows, []string{e.Slug, pin, channel, installed})
	}
	fmt.Print(ui.Table(p.Colors, []string{"PROJECT", "PIN", "CHANNEL", "INSTALLED"}, rows, nil))

	if orphans := snap.Orphans(d.Tracked.Slugs()); len(orphans) > 0 {
		fmt.Println()
		for _, o := range orphans {
			p.Warn(fmt.Sprintf("%s is installed but no longer tracked (delete %s if unwanted)", o.Slug, o.FilePath))
		}
	}
	return nil
}
