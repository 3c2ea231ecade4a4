package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"layoffs/internal/config"
)

var errInvalidConfig = errors.New("pipeline file has errors")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Lint the pipeline file",
	RunE: func(cmd *cobra.Command, args []string) error {
		issues := config.ValidatePipeline(cfg)
		out := cmd.OutOrStdout()
		for _, iss := range issues {
			fmt.Fprintln(out, iss.Error())
		}
		if config.HasErrors(issues) {
			return errInvalidConfig
		}
		fmt.Fprintf(out, "ok: %d transforms, %d warnings\n", len(cfg.Transform), len(issues))
		return nil
	},
}
