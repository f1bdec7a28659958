package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcpax/mcpax-cli/internal/doctor"
	"github.com/mcpax/mcpax-cli/internal/exitcodes"
	ui "github.com/mcpax/mcpax-cli/internal/ui"
)

func init() {
	var doctorOffline bool

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on the instance setup",
		Long: `Performs health checks on your mcpax setup including:
- Configuration file validity
- Target directory permissions
- Disk space headroom
- Catalog (Modrinth API) reachability
- State file integrity`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleDoctor(cmd, newDeps(), doctorOffline)
		},
	}
	doctorCmd.Flags().BoolVar(&doctorOffline, "offline", false, "Skip the catalog reachability check")
	rootCmd.AddCommand(doctorCmd)
}

func handleDoctor(cmd *cobra.Command, d *Deps, offline bool) error {
	c := ui.NewColorConfigFromGlobal()

	fmt.Println(c.Header(" MCPAX HEALTH CHECK "))
	fmt.Println()

	opts := doctor.Options{Config: d.Cfg, CfgErr: d.CfgErr, Store: d.Store}
	if !offline {
		opts.Catalog = d.Client
	}

	// The catalog reachability check can take a few seconds on a bad
	// connection; keep an interactive terminal visibly alive meanwhile.
	stopSpin := func() {}
	if isTTY() && !d.Printer.IsJSON() && !ui.GetGlobal().Quiet {
		spin := ui.NewSpinner(os.Stdout, "Running checks")
		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			t := time.NewTicker(120 * time.Millisecond)
			defer t.Stop()
			for {
				select {
				case <-done:
					return
				case <-t.C:
					spin.Tick()
				}
			}
		}()
		var once sync.Once
		stopSpin = func() {
			once.Do(func() {
				close(done)
				wg.Wait()
				fmt.Print("\r\033[K")
			})
		}
	}

	results := doctor.Run(cmd.Context(), opts)
	stopSpin()

	if d.Printer.IsJSON() {
		d.Printer.JSON(results)
	} else {
		for _, r := range results {
			printCheck(r, c)
		}
	}

	fmt.Println()
	fmt.Println(c.Separator(60))

	passed, warned, failed := doctor.Summarize(results)
	summary := fmt.Sprintf("Checks: %d passed, %d warnings, %d failed", passed, warned, failed)
	if failed > 0 {
		fmt.Println(c.Error("✗ " + summary))
		return silentErr{exitcodes.ValidationErr(summary)}
	} else if warned > 0 {
		fmt.Println(c.Warning("⚠ " + summary))
	} else {
		fmt.Println(c.Success("✓ " + summary))
	}
	return nil
}

func printCheck(r doctor.Result, c *ui.ColorConfig) {
	var icon string
	switch r.Status {
	case doctor.StatusPass:
		icon = c.Success("✓")
	case doctor.StatusWarn:
		icon = c.Warning("⚠")
	default:
		icon = c.Error("✗")
	}
	fmt.Printf("%s %s: %s\n", icon, c.Label(r.Name), r.Message)
	for _, detail := range r.Details {
		fmt.Printf("    %s\n", c.Description(detail))
	}
}
