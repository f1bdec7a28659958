package main

import (
	"github.com/spf13/cobra"
)

func init() {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the catalog response cache",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all cached catalog responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := newDeps()
			if err := d.Cache.Clear(); err != nil {
				return err
			}
			d.Printer.Success("Cache cleared")
			return nil
		},
	})
	rootCmd.AddCommand(cacheCmd)
}
