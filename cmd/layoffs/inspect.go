package main

import (
	"github.com/spf13/cobra"

	"layoffs/internal/inspect"
)

var (
	inspectTable string
	inspectJSON  bool
	inspectTop   int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Profile a table: blanks, NULLs, duplicates, label variants and bad dates",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := inspectTable
		if table == "" {
			table = cfg.Storage.DB.SourceTable
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()

		repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		p, err := inspect.Run(ctx, repo, table, inspect.Options{TopN: inspectTop})
		if err != nil {
			return err
		}
		if inspectJSON {
			return inspect.RenderJSON(cmd.OutOrStdout(), p)
		}
		return inspect.Render(cmd.OutOrStdout(), p)
	},
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectTable, "table", "", "table to profile (default storage.db.source_table)")
	f.BoolVar(&inspectJSON, "json", false, "print the profile as JSON")
	f.IntVar(&inspectTop, "top", 5, "most frequent values shown per column")
}
