// Package loader streams the raw dataset into the source table: source bytes
// are parsed into text rows, coerced to the raw column kinds and inserted in
// batches. It is the step that runs before any cleaning.
package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"layoffs/internal/config"
	"layoffs/internal/datasource"
	"layoffs/internal/ddl"
	"layoffs/internal/metrics"
	"layoffs/internal/parser"
	csvparser "layoffs/internal/parser/csv"
	xlsxparser "layoffs/internal/parser/xlsx"
	"layoffs/internal/record"
	"layoffs/internal/storage"
	"layoffs/internal/transformer"
)

// if_exists policies.
const (
	IfExistsFail    = "fail"
	IfExistsAppend  = "append"
	IfExistsReplace = "replace"
)

// maxLoggedRejects bounds the per-row warnings of one load.
const maxLoggedRejects = 5

// Result summarizes one load.
type Result struct {
	Table    string
	Parsed   int64 // rows the parser emitted
	Rejected int64 // malformed records plus rows that failed coercion
	Inserted int64
	Batches  int64
	Elapsed  time.Duration
}

// Small seams for tests.
var (
	newSourceFn = datasource.New
	newParserFn = NewParser
)

// NewParser builds the parser selected by parser.kind.
func NewParser(p config.Parser) (parser.Parser, error) {
	switch p.Kind {
	case "csv", "":
		return csvparser.NewParser(csvparser.OptionsFrom(p.Options)), nil
	case "xlsx":
		return xlsxparser.NewParser(xlsxparser.OptionsFrom(p.Options)), nil
	default:
		return nil, eris.Errorf("unsupported parser.kind=%s", p.Kind)
	}
}

// RawSpecFrom reads null_tokens and keep_empty from parser options. Absent
// keys keep the defaults of transformer.DefaultRawSpec.
func RawSpecFrom(o config.Options) transformer.RawSpec {
	spec := transformer.DefaultRawSpec()
	if o.Has("null_tokens") {
		spec.NullTokens = o.StringSlice("null_tokens")
	}
	if o.Has("keep_empty") {
		spec.KeepEmpty = o.StringSlice("keep_empty")
	}
	return spec
}

// Load reads the configured source into the source table.
func Load(ctx context.Context, p config.Pipeline, repo storage.Repository) (Result, error) {
	start := time.Now()
	table := p.Storage.DB.SourceTable
	if table == "" {
		table = config.DefaultSourceTable
	}
	res := Result{Table: table}
	log := zap.L().Named("loader").With(zap.String("job", p.Job), zap.String("table", table))

	prs, err := newParserFn(p.Parser)
	if err != nil {
		return res, err
	}
	src, err := newSourceFn(p.Source)
	if err != nil {
		return res, err
	}
	if err := prepareTable(ctx, repo, table, p.Storage.DB.IfExists); err != nil {
		return res, err
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return res, eris.Wrap(err, "loader: open source")
	}

	batchSize := p.Runtime.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	buf := p.Runtime.ChannelBuffer
	if buf <= 0 {
		buf = config.DefaultChanBuffer
	}

	var (
		parsed, rejected, batches atomic.Int64
		agg                       = &rejectLog{log: log, limit: maxLoggedRejects}
	)
	columns := record.Columns
	spec := RawSpecFrom(p.Parser.Options)

	rawCh := make(chan []string, buf)
	tapCh := make(chan []string, buf)
	rowCh := make(chan []any, buf)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rawCh)
		return prs.Stream(gctx, rc, columns, rawCh, func(line int, err error) {
			rejected.Add(1)
			agg.add("parse", line, err)
		})
	})

	g.Go(func() error {
		defer close(tapCh)
		for r := range rawCh {
			parsed.Add(1)
			select {
			case tapCh <- r:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		defer close(rowCh)
		transformer.CoerceLoop(gctx, columns, tapCh, rowCh, spec, func(line int, err error) {
			rejected.Add(1)
			agg.add("coerce", line, err)
		})
		return nil
	})

	g.Go(func() error {
		n, err := storage.LoadBatches(gctx, columns, rowCh, batchSize,
			func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
				n, err := repo.CopyFrom(ctx, table, cols, rows)
				if err == nil {
					batches.Add(1)
				}
				return n, err
			})
		res.Inserted = n
		return err
	})

	err = g.Wait()

	res.Parsed = parsed.Load()
	res.Rejected = rejected.Load()
	res.Batches = batches.Load()
	res.Elapsed = time.Since(start)

	metrics.RecordRows(p.Job, "load", "parsed", res.Parsed)
	metrics.RecordRows(p.Job, "load", "rejected", res.Rejected)
	metrics.RecordRows(p.Job, "load", "inserted", res.Inserted)
	metrics.RecordBatches(p.Job, res.Batches)

	if err != nil {
		return res, eris.Wrap(err, "loader: load")
	}
	log.Info("load complete",
		zap.Int64("parsed", res.Parsed),
		zap.Int64("rejected", res.Rejected),
		zap.Int64("inserted", res.Inserted),
		zap.Int64("batches", res.Batches),
		zap.Duration("elapsed", res.Elapsed.Truncate(time.Millisecond)),
	)
	return res, nil
}

// prepareTable applies the if_exists policy and creates the raw table when
// it is absent.
func prepareTable(ctx context.Context, repo storage.Repository, table, ifExists string) error {
	if ifExists == "" {
		ifExists = IfExistsFail
	}
	switch ifExists {
	case IfExistsFail, IfExistsAppend, IfExistsReplace:
	default:
		return eris.Errorf("unsupported storage.db.if_exists=%s", ifExists)
	}

	exists, err := repo.TableExists(ctx, table)
	if err != nil {
		return eris.Wrapf(err, "loader: check %s", table)
	}
	if exists {
		switch ifExists {
		case IfExistsFail:
			return &storage.PreconditionError{Table: table}
		case IfExistsAppend:
			return nil
		}
		if err := repo.DropTable(ctx, table); err != nil {
			return eris.Wrapf(err, "loader: drop %s", table)
		}
	}
	if err := repo.CreateTable(ctx, ddl.RawLayoffs(table)); err != nil {
		return eris.Wrapf(err, "loader: create %s", table)
	}
	return nil
}

// rejectLog logs the first few rejected rows of a load and counts the rest.
type rejectLog struct {
	mu    sync.Mutex
	log   *zap.Logger
	limit int
	count int
}

func (a *rejectLog) add(step string, line int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	if a.count <= a.limit {
		a.log.Warn("row rejected", zap.String("step", step), zap.Int("line", line), zap.Error(err))
	} else if a.count == a.limit+1 {
		a.log.Warn("further rejected rows are counted but not logged")
	}
}
