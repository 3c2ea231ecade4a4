// Package csv streams a raw layoffs CSV file into rows aligned to the
// business columns.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"layoffs/internal/config"
	"layoffs/internal/parser"
)

// Options tunes the reader. Zero values are defaults.
type Options struct {
	// HasHeader reports whether the first record is a header (default true
	// when built from config).
	HasHeader bool
	// Comma is the field delimiter; ',' when zero.
	Comma rune
	// LazyQuotes relaxes quote handling (csv.Reader.LazyQuotes).
	LazyQuotes bool
	// HeaderMap maps source header names onto column names.
	HeaderMap map[string]string
}

// OptionsFrom reads parser.options of a pipeline file:
// has_header, comma, lazy_quotes, header_map.
func OptionsFrom(o config.Options) Options {
	return Options{
		HasHeader:  o.Bool("has_header", true),
		Comma:      o.Rune("comma", ','),
		LazyQuotes: o.Bool("lazy_quotes", false),
		HeaderMap:  o.StringMap("header_map"),
	}
}

// Parser implements parser.Parser for CSV input.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

var _ parser.Parser = (*Parser)(nil)

// Stream reads src and sends one aligned row per data record on out.
//
// Cell text is passed through untouched: surrounding whitespace is data the
// normalizer deals with. Malformed records are reported through onErr and
// skipped; a missing or unreadable header is fatal.
func (p *Parser) Stream(
	ctx context.Context,
	src io.ReadCloser,
	columns []string,
	out chan<- []string,
	onErr parser.ErrFn,
) error {
	defer src.Close()

	log := zap.L().Named("csv")

	cr := csv.NewReader(src)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.FieldsPerRecord = -1 // width checked against the header below

	line := 0
	read := func() ([]string, error) { line++; return cr.Read() }

	var idx []int
	width := len(columns)
	if p.opt.HasHeader {
		hdr, err := read()
		if err != nil {
			return eris.Wrap(err, "csv: read header")
		}
		hdr = StripHeaderBOM(hdr)
		idx, err = parser.HeaderIndex(hdr, columns, p.opt.HeaderMap)
		if err != nil {
			return err
		}
		if missing := parser.Missing(idx, columns); len(missing) > 0 {
			log.Warn("columns missing from header load as empty", zap.Strings("columns", missing))
		}
		width = len(hdr)
	} else {
		idx = parser.Positional(len(columns))
	}

	emitted := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := read()
		if errors.Is(err, io.EOF) {
			log.Debug("csv done", zap.Int("lines", line-1), zap.Int("rows", emitted))
			return nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, eris.Wrap(err, "csv: read"))
			}
			continue
		}
		if len(rec) != width {
			if onErr != nil {
				onErr(line, eris.Errorf("csv: %d fields, want %d", len(rec), width))
			}
			continue
		}

		select {
		case out <- parser.Align(rec, idx):
			emitted++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
