package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcpax/mcpax-cli/internal/config"
	"github.com/mcpax/mcpax-cli/internal/exitcodes"
)

func init() {
	var removeKeepFile bool

	removeCmd := &cobra.Command{
		Use:     "remove <slug>",
		Aliases: []string{"rm"},
		Short:   "Stop tracking a project",
		Long:    "Remove a project from the tracked list, delete its installed file and drop its state record. Use --keep-file to leave the file on disk.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleRemove(newDeps(), args[0], removeKeepFile)
		},
	}
	removeCmd.Flags().BoolVar(&removeKeepFile, "keep-file", false, "Leave the installed file on disk")
	rootCmd.AddCommand(removeCmd)
}

func handleRemove(d *Deps, slug string, keepFile bool) error {
	p := d.Printer
	if err := d.requireConfig(); err != nil {
		return exitcodes.PreconditionError(err.Error())
	}
	if d.TrkErr != nil {
		return fmt.Errorf("load tracked projects: %w", d.TrkErr)
	}

	if !d.Tracked.Remove(slug) {
		return exitcodes.InvalidArgsErrorf("project %q is not tracked", slug)
	}
	if err := config.SaveProjects(d.ProjectsPath, d.Tracked); err != nil {
		return fmt.Errorf("save tracked projects: %w", err)
	}

	s := d.newSyncer(nil, nil)
	rec, err := s.Uninstall(slug, !keepFile)
	if err != nil {
		return exitcodes.WrapError(exitcodes.ValidationError, "uninstall failed", err)
	}

	switch {
	case rec == nil:
		p.Success(fmt.Sprintf("No longer tracking %s (nothing was installed)", slug))
	case keepFile:
		p.Success(fmt.Sprintf("No longer tracking %s", slug))
		p.Info(fmt.Sprintf("Kept %s", rec.FilePath))
	default:
		p.Success(fmt.Sprintf("Removed %s (%s)", slug, rec.Filename))
	}
	return nil
}
