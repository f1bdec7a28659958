package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcpax/mcpax-cli/internal/config"
	"github.com/mcpax/mcpax-cli/internal/exitcodes"
	"github.com/mcpax/mcpax-cli/internal/modrinth"
	"github.com/mcpax/mcpax-cli/internal/resolver"
	ui "github.com/mcpax/mcpax-cli/internal/ui"
)

func init() {
	var addPin string
	var addChannel string

	addCmd := &cobra.Command{
		Use:   "add <slug>",
		Short: "Track a project from Modrinth",
		Long:  "Verify the project exists on Modrinth and append it to the tracked list. Run 'mcpax sync' to install it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleAdd(cmd, newDeps(), args[0], addPin, addChannel)
		},
	}
	addCmd.Flags().StringVar(&addPin, "version", "", "Pin an exact version id or number")
	addCmd.Flags().StringVar(&addChannel, "channel", "", "Stability floor for this project: release|beta|alpha")
	rootCmd.AddCommand(addCmd)
}

func handleAdd(cmd *cobra.Command, d *Deps, slug, pin, channel string) error {
	p := d.Printer
	if err := d.requireConfig(); err != nil {
		return exitcodes.PreconditionError(err.Error())
	}
	if d.TrkErr != nil {
		return fmt.Errorf("load tracked projects: %w", d.TrkErr)
	}
	if channel != "" && !modrinth.Channel(channel).Valid() {
		return exitcodes.InvalidArgsErrorf("invalid channel %q (use release|beta|alpha)", channel)
	}

	ctx := cmd.Context()
	meta, err := d.Catalog.Project(ctx, slug)
	if err != nil {
		ui.PrintError(describeCatalogErr(slug, err))
		if modrinth.IsNotFound(err) {
			return silentErr{exitcodes.InvalidArgsErrorf("unknown project %q", slug)}
		}
		return silentErr{exitcodes.NetworkErr(err.Error())}
	}
	if !meta.ProjectType.Valid() {
		return exitcodes.InvalidArgsErrorf("project %q has unsupported type %q", slug, meta.ProjectType)
	}

	proj := config.Project{Slug: slug, Version: pin, Channel: modrinth.Channel(channel)}
	if err := d.Tracked.Add(proj); err != nil {
		return exitcodes.PreconditionError(err.Error())
	}
	if err := config.SaveProjects(d.ProjectsPath, d.Tracked); err != nil {
		return fmt.Errorf("save tracked projects: %w", err)
	}

	label := fmt.Sprintf("Tracking %s (%s)", meta.Title, meta.ProjectType)
	if pin != "" {
		label += " pinned to " + pin
	}
	p.Success(label)

	// Resolve eagerly so incompatibility shows up at add time, not at
	// the next sync.
	versions, err := d.Catalog.Versions(ctx, slug)
	if err == nil {
		crit := resolver.Criteria{
			GameVersion: d.Cfg.MinecraftVersion,
			Loader:      string(d.Cfg.Loader),
			Channel:     d.Cfg.ChannelFor(proj),
			Pin:         pin,
			ProjectType: meta.ProjectType,
		}
		if best, ok := resolver.SelectBest(versions, crit); ok {
			p.Info(fmt.Sprintf("Latest compatible version: %s", best.VersionNumber))
		} else {
			p.Warn(fmt.Sprintf("No version compatible with Minecraft %s / %s yet", d.Cfg.MinecraftVersion, d.Cfg.Loader))
		}
	}
	p.Info("Run 'mcpax sync' to install")
	rateLimitHint(p, d.Client)
	return nil
}
