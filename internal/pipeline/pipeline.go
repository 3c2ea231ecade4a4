// Package pipeline runs one cleaning job end to end: snapshot the source
// table, apply the configured stages to the working rows in memory and commit
// the result back into the working table.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"layoffs/internal/config"
	"layoffs/internal/ddl"
	"layoffs/internal/metrics"
	"layoffs/internal/record"
	"layoffs/internal/storage"
	"layoffs/internal/transformer"
	"layoffs/internal/transformer/builtin"
)

// Options tunes a run.
type Options struct {
	// Fresh drops an existing working table before the snapshot. Without it
	// a leftover working table fails the run with *storage.PreconditionError.
	Fresh bool
}

// Summary is the outcome of a run.
type Summary struct {
	RunID       uuid.UUID
	Source      string
	Working     string
	Snapshotted int64
	Reports     []transformer.Report
	Committed   int
	Elapsed     time.Duration
}

// Run executes p against repo. Any stage error aborts before the commit; the
// working table then still holds the untouched snapshot.
func Run(ctx context.Context, p config.Pipeline, repo storage.Repository, opts Options) (Summary, error) {
	start := time.Now()
	sum := Summary{
		RunID:   uuid.New(),
		Source:  orDefault(p.Storage.DB.SourceTable, config.DefaultSourceTable),
		Working: orDefault(p.Storage.DB.WorkingTable, config.DefaultWorkingTable),
	}
	log := zap.L().Named("pipeline").With(
		zap.String("job", p.Job),
		zap.String("run_id", sum.RunID.String()),
	)

	if sum.Source == sum.Working {
		return sum, eris.Errorf("pipeline: source and working table are both %q", sum.Source)
	}

	chain, err := builtin.FromConfig(p.Transform)
	if err != nil {
		return sum, err
	}

	if opts.Fresh {
		if err := repo.DropTable(ctx, sum.Working); err != nil {
			return sum, eris.Wrapf(err, "pipeline: drop %s", sum.Working)
		}
	}

	stageStart := time.Now()
	n, err := repo.Snapshot(ctx, sum.Source, sum.Working)
	metrics.RecordStage(p.Job, "snapshot", err, time.Since(stageStart))
	if err != nil {
		var pe *storage.PreconditionError
		if errors.As(err, &pe) {
			log.Error("working table already exists; rerun with a fresh snapshot",
				zap.String("table", pe.Table))
		}
		return sum, err
	}
	sum.Snapshotted = n
	metrics.RecordRows(p.Job, "snapshot", "copied", n)
	log.Info("snapshot created",
		zap.String("source", sum.Source),
		zap.String("working", sum.Working),
		zap.Int64("rows", n))

	raw, err := repo.ReadRows(ctx, sum.Working, ddl.RawLayoffs(sum.Working).ColumnNames())
	if err != nil {
		return sum, eris.Wrapf(err, "pipeline: read %s", sum.Working)
	}
	tbl, err := transformer.NewTable(sum.Working, record.Columns, raw)
	if err != nil {
		return sum, eris.Wrapf(err, "pipeline: decode %s", sum.Working)
	}

	sum.Reports, err = chain.Run(ctx, tbl, observer(p.Job, log))
	if err != nil {
		sum.Elapsed = time.Since(start)
		return sum, eris.Wrapf(err, "pipeline: stage %s", lastStage(sum.Reports))
	}

	def := ddl.CleanedLayoffs(sum.Working, tbl.DateTyped, tbl.HasRowNum)
	stageStart = time.Now()
	err = repo.ReplaceTable(ctx, def, tbl.Values())
	metrics.RecordStage(p.Job, "commit", err, time.Since(stageStart))
	if err != nil {
		return sum, eris.Wrapf(err, "pipeline: commit %s", sum.Working)
	}
	sum.Committed = len(tbl.Rows)
	sum.Elapsed = time.Since(start)

	metrics.RecordRows(p.Job, "commit", "written", int64(sum.Committed))
	log.Info("run complete",
		zap.Int64("snapshotted", sum.Snapshotted),
		zap.Int("committed", sum.Committed),
		zap.Bool("date_typed", tbl.DateTyped),
		zap.Duration("elapsed", sum.Elapsed.Truncate(time.Millisecond)))
	return sum, nil
}

// observer records stage metrics and logs each report.
func observer(job string, log *zap.Logger) transformer.Observer {
	return func(rep transformer.Report, err error, elapsed time.Duration) {
		metrics.RecordStage(job, rep.Stage, err, elapsed)
		for kind, n := range rep.Counts {
			metrics.RecordRows(job, rep.Stage, kind, int64(n))
		}

		fields := []zap.Field{
			zap.String("stage", rep.Stage),
			zap.Int("rows_in", rep.RowsIn),
			zap.Int("rows_out", rep.RowsOut),
			zap.Any("counts", rep.Counts),
			zap.Duration("elapsed", elapsed),
		}
		if err != nil {
			log.Error("stage failed", append(fields, zap.Error(err))...)
			return
		}
		if len(rep.Warnings) > 0 {
			fields = append(fields, zap.Int("warnings", len(rep.Warnings)))
		}
		log.Info("stage done", fields...)
	}
}

func lastStage(reps []transformer.Report) string {
	if len(reps) == 0 {
		return "?"
	}
	return reps[len(reps)-1].Stage
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
