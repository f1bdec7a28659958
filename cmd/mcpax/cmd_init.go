package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mcpax/mcpax-cli/internal/config"
	"github.com/mcpax/mcpax-cli/internal/exitcodes"
	"github.com/mcpax/mcpax-cli/internal/modrinth"
)

func init() {
	var initVersion string
	var initLoader string
	var initDir string
	var initForce bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the instance configuration",
		Long:  "Write config.yaml and an empty projects.yaml into the mcpax config directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleInit(newDeps(), initVersion, initLoader, initDir, initForce)
		},
	}
	initCmd.Flags().StringVar(&initVersion, "mc-version", "", "Minecraft version, e.g. 1.21.1 (required)")
	initCmd.Flags().StringVar(&initLoader, "loader", "fabric", "Mod loader: fabric|forge|neoforge|quilt")
	initCmd.Flags().StringVar(&initDir, "minecraft-dir", "", "Minecraft instance directory (default ~/.minecraft)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration")
	_ = initCmd.MarkFlagRequired("mc-version")
	rootCmd.AddCommand(initCmd)
}

func handleInit(d *Deps, version, loader, dir string, force bool) error {
	p := d.Printer

	if _, err := os.Stat(d.ConfigPath); err == nil && !force {
		p.Error(fmt.Sprintf("configuration already exists at %s", d.ConfigPath))
		p.Info("Use --force to overwrite it")
		return silentErr{exitcodes.PreconditionError("configuration already exists")}
	}

	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".minecraft")
	}

	cfg := config.Config{
		MinecraftVersion: version,
		Loader:           config.Loader(loader),
		MinecraftDir:     dir,
		Channel:          modrinth.ChannelRelease,
	}
	if err := cfg.Validate(); err != nil {
		return exitcodes.WrapError(exitcodes.InvalidArgs, "invalid settings", err)
	}

	if err := config.Save(d.ConfigPath, cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	// Seed an empty tracked list so later commands do not special-case
	// a missing file vs. an uninitialized instance.
	if _, err := os.Stat(d.ProjectsPath); os.IsNotExist(err) {
		if err := config.SaveProjects(d.ProjectsPath, config.Projects{}); err != nil {
			return fmt.Errorf("write projects: %w", err)
		}
	}

	p.Success(fmt.Sprintf("Initialized mcpax for Minecraft %s (%s)", version, loader))
	p.KeyValueLine("Config", d.ConfigPath, "dim")
	p.KeyValueLine("Instance", dir, "dim")
	p.Info("Track your first project with 'mcpax add <slug>'")
	return nil
}
