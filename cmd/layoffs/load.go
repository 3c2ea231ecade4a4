package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"layoffs/internal/loader"
)

var (
	loadFile     string
	loadURL      string
	loadIfExists string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the raw CSV or XLSX file into the source table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if loadFile != "" {
			cfg.Source.Kind = "file"
			cfg.Source.File.Path = loadFile
		}
		if loadURL != "" {
			cfg.Source.Kind = "http"
			cfg.Source.HTTP.URL = loadURL
		}
		if loadIfExists != "" {
			cfg.Storage.DB.IfExists = loadIfExists
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()

		repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		res, err := loader.Load(ctx, cfg, repo)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows into %s (%d rejected, %d batches)\n",
			res.Inserted, res.Table, res.Rejected, res.Batches)
		return nil
	},
}

func init() {
	f := loadCmd.Flags()
	f.StringVar(&loadFile, "file", "", "raw file path (overrides source.file.path)")
	f.StringVar(&loadURL, "url", "", "download the raw file from this URL (overrides source.http.url)")
	f.StringVar(&loadIfExists, "if-exists", "", "when the source table exists: fail, append or replace")
	loadCmd.MarkFlagsMutuallyExclusive("file", "url")
}
