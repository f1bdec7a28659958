package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcpax/mcpax-cli/internal/exitcodes"
	ui "github.com/mcpax/mcpax-cli/internal/ui"
)

func init() {
	var searchLimit int
	var searchOffset int

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the Modrinth catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleSearch(cmd, newDeps(), strings.Join(args, " "), searchLimit, searchOffset)
		},
	}
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "Result offset for paging")
	rootCmd.AddCommand(searchCmd)
}

func handleSearch(cmd *cobra.Command, d *Deps, query string, limit, offset int) error {
	p := d.Printer

	res, err := d.Client.Search(cmd.Context(), query, limit, offset)
	if err != nil {
		ui.PrintError(describeCatalogErr(query, err))
		return silentErr{exitcodes.NetworkErr(err.Error())}
	}

	if p.IsJSON() {
		p.JSON(res)
		return nil
	}

	if len(res.Hits) == 0 {
		p.Info(fmt.Sprintf("No results for %q", query))
		return nil
	}

	rows := make([][]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		desc := hit.Description
		if len(desc) > 60 {
			desc = desc[:59] + "…"
		}
		rows = append(rows, []string{
			hit.Slug,
			string(hit.ProjectType),
			ui.FormatNumber(hit.Downloads),
			desc,
		})
	}
	fmt.Print(ui.Table(p.Colors, []string{"SLUG", "TYPE", "DOWNLOADS", "DESCRIPTION"}, rows, nil))
	if res.TotalHits > offset+len(res.Hits) {
		p.Info(fmt.Sprintf("%d more result(s); use --offset %d", res.TotalHits-offset-len(res.Hits), offset+len(res.Hits)))
	}
	rateLimitHint(p, d.Client)
	return nil
}
