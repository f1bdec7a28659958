package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcpax/mcpax-cli/internal/config"
	"github.com/mcpax/mcpax-cli/internal/exitcodes"
	ui "github.com/mcpax/mcpax-cli/internal/ui"
)

// Version information - set via -ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// rootCmd wires the CLI surface using Cobra. Persistent flags are
// applied to the loaded config in newDeps(). Subcommands implement the
// actual operations (init, add, sync, status, etc.).
var rootCmd = &cobra.Command{
	Use:           "mcpax",
	Short:         "Minecraft content synchronizer",
	Long:          "Keep a Minecraft instance's mods, shaders and resource packs in sync with the Modrinth catalog.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize global UI config from flags after parsing but before command execution
		ui.InitGlobal(ui.Config{
			NoColor:        flagNoColor,
			NoEmoji:        flagNoEmoji,
			Yes:            flagYes,
			NonInteractive: flagNonInteractive,
			Verbose:        flagVerbose,
			Quiet:          flagQuiet,
		})

		// Set NO_COLOR env so lipgloss and other libraries respect the flag
		if flagNoColor {
			os.Setenv("NO_COLOR", "1")
		}
	},
}

var (
	flagConfigDir      string
	flagInstanceDir    string
	flagOutput         string
	flagVerbose        bool
	flagQuiet          bool
	flagNoColor        bool
	flagNoEmoji        bool
	flagYes            bool
	flagNonInteractive bool
	flagNoCache        bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "Config directory (overrides $MCPAX_CONFIG_DIR)")
	rootCmd.PersistentFlags().StringVar(&flagInstanceDir, "dir", "", "Minecraft instance directory (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "Output format: json|text")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet mode: minimal output")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	rootCmd.PersistentFlags().BoolVar(&flagNoEmoji, "no-emoji", false, "Disable emoji output")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Assume yes for all prompts")
	rootCmd.PersistentFlags().BoolVar(&flagNonInteractive, "non-interactive", false, "Fail instead of prompting")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the catalog response cache")

	// Replace root help to present grouped, example-rich output.
	// Only apply custom help to the root command; subcommands use cobra's default help.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			fmt.Fprintln(os.Stdout, cmd.UsageString())
			return
		}
		// Help runs before PersistentPreRun, so manually configure colors
		c := ui.NewColorConfig()
		c.Enabled = c.Enabled && !flagNoColor
		c.EmojiEnabled = c.EmojiEnabled && !flagNoEmoji
		w := os.Stdout

		fmt.Fprintln(w, c.Header(" mcpax "))
		fmt.Fprintln(w, c.Description("Keep a Minecraft instance's mods, shaders and resource packs in sync with Modrinth."))
		fmt.Fprintln(w, c.Separator(50))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("USAGE"))
		fmt.Fprintf(w, "  %s <command> [flags]\n", "mcpax")
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Getting Started"))
		printHelpLine(w, c, "init", "Create the instance configuration")
		printHelpLine(w, c, "add <slug>", "Track a project from Modrinth")
		printHelpLine(w, c, "sync", "Install/update everything tracked")
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Projects"))
		printHelpLine(w, c, "list", "List tracked projects")
		printHelpLine(w, c, "status", "Show per-project sync status without changing files")
		printHelpLine(w, c, "remove <slug>", "Stop tracking a project (optionally delete its file)")
		printHelpLine(w, c, "search <query>", "Search the Modrinth catalog")
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Utilities"))
		printHelpLine(w, c, "doctor", "Run diagnostic checks")
		printHelpLine(w, c, "version", "Show version")
		fmt.Fprintln(w)
	})
}

func printHelpLine(w *os.File, c *ui.ColorConfig, cmd, desc string) {
	const cmdWidth = 24
	pad := cmdWidth - len(cmd)
	if pad < 1 {
		pad = 1
	}
	fmt.Fprintf(w, "  %s%*s%s\n", c.Apply(c.Theme.Success, cmd), pad, "", c.Description(desc))
}

// silentErr marks an error whose message was already printed by the
// handler; Execute only maps it to an exit code.
type silentErr struct{ error }

func (e silentErr) Unwrap() error { return e.error }

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var se silentErr
		if !errors.As(err, &se) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitcodes.CodeForError(err))
	}
}

// configDir resolves the config directory from the flag or the
// environment-aware default.
func configDir() string {
	if flagConfigDir != "" {
		return flagConfigDir
	}
	return config.Dir()
}
