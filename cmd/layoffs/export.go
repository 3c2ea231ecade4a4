package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"layoffs/internal/exporter"
)

var (
	exportTable  string
	exportFormat string
	exportOut    string
	exportBOM    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a table to CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := exportTable
		if table == "" {
			table = cfg.Storage.DB.WorkingTable
		}
		format := exportFormat
		if format == "" && exportOut != "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(exportOut)), ".")
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()

		repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOut, err)
			}
			defer f.Close()
			w = f
		}

		n, err := exporter.Export(ctx, repo, table, w, exporter.Options{Format: format, BOM: exportBOM})
		if err != nil {
			return err
		}
		if exportOut != "" && exportOut != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d rows of %s to %s\n", n, table, exportOut)
		}
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportTable, "table", "", "table to export (default storage.db.working_table)")
	f.StringVar(&exportFormat, "format", "", "csv or xlsx (default from --out extension, else csv)")
	f.StringVarP(&exportOut, "out", "o", "", "output file; stdout when empty or -")
	f.BoolVar(&exportBOM, "bom", false, "prefix CSV output with a UTF-8 BOM")
}
