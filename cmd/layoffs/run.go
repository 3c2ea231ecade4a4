package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"layoffs/internal/pipeline"
)

var runFresh bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Snapshot the source table and run the cleaning stages",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()

		sum, err := pipeline.Run(ctx, cfg, repo, pipeline.Options{Fresh: runFresh})
		if len(sum.Reports) > 0 {
			printSummary(cmd.OutOrStdout(), sum)
		}
		return err
	},
}

func init() {
	runCmd.Flags().BoolVar(&runFresh, "fresh", false, "drop an existing working table before the snapshot")
}

func printSummary(w io.Writer, sum pipeline.Summary) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("stage", "rows in", "rows out", "counts", "warnings")
	for _, r := range sum.Reports {
		t.Row(r.Stage, strconv.Itoa(r.RowsIn), strconv.Itoa(r.RowsOut), formatCounts(r.Counts), strconv.Itoa(len(r.Warnings)))
	}
	fmt.Fprintf(w, "run %s: %s -> %s\n", sum.RunID, sum.Source, sum.Working)
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "snapshot %d rows, committed %d rows in %s\n", sum.Snapshotted, sum.Committed, sum.Elapsed.Round(time.Millisecond))
}

func formatCounts(c map[string]int) string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.Itoa(c[k])
	}
	return strings.Join(parts, " ")
}
