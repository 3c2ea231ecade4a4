// Command layoffs loads, inspects, cleans and exports the layoffs dataset.
//
//	layoffs load     --config pipeline.json   # raw file -> source table
//	layoffs inspect  --table layoffs          # profile a table
//	layoffs run      --fresh                  # snapshot + cleaning stages
//	layoffs export   --format xlsx --out clean.xlsx
//	layoffs validate                          # lint the pipeline file
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"layoffs/internal/config"
	"layoffs/internal/metrics"
	"layoffs/internal/storage"

	// Register every storage backend with the factory; the pipeline file
	// picks one by storage.kind.
	_ "layoffs/internal/storage/all"
)

var (
	cfg config.Pipeline

	cfgPath        string
	logLevel       string
	logFormat      string
	metricsBackend string
	pushgatewayURL string
	statsdAddr     string
)

// newRepositoryFn is a seam for tests.
var newRepositoryFn = storage.New

var rootCmd = &cobra.Command{
	Use:   "layoffs",
	Short: "Clean the company layoffs dataset",
	Long: "Loads the raw layoffs file into a source table, snapshots it into a working table " +
		"and runs the cleaning stages (dedupe, normalize, backfill, prune) over the snapshot.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyFlags(cmd, &p)
		cfg = p

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		setupMetrics(cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := metrics.Flush(); err != nil {
			zap.L().Warn("metrics flush", zap.Error(err))
		}
		_ = zap.L().Sync()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&cfgPath, "config", "c", "", "pipeline file (JSON or YAML); LAYOFFS_* env vars override it")
	f.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&logFormat, "log-format", "", "log format: console or json")
	f.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog")
	f.StringVar(&pushgatewayURL, "pushgateway-url", "", "Prometheus Pushgateway base URL")
	f.StringVar(&statsdAddr, "statsd-addr", "", "DogStatsD address host:port")

	rootCmd.AddCommand(runCmd, loadCmd, inspectCmd, exportCmd, validateCmd)
}

// applyFlags lets explicitly set flags win over the file and environment.
func applyFlags(cmd *cobra.Command, p *config.Pipeline) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("log-level", &p.Log.Level, logLevel)
	set("log-format", &p.Log.Format, logFormat)
	set("metrics-backend", &p.Metrics.Backend, metricsBackend)
	set("pushgateway-url", &p.Metrics.PushgatewayURL, pushgatewayURL)
	set("statsd-addr", &p.Metrics.StatsdAddr, statsdAddr)
}

// openRepository opens the backend named by storage.kind.
func openRepository(ctx context.Context) (storage.Repository, error) {
	repo, err := newRepositoryFn(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DB.DSN})
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return repo, nil
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
