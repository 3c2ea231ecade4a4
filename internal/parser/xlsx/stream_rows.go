// Package xlsx streams one worksheet of a raw layoffs workbook into rows
// aligned to the business columns.
package xlsx

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"layoffs/internal/config"
	"layoffs/internal/parser"
)

// Options tunes the reader.
type Options struct {
	// Sheet names the worksheet; empty selects the first one.
	Sheet string
	// HasHeader reports whether the first row is a header.
	HasHeader bool
	// SkipRows drops leading rows (titles above the header).
	SkipRows int
	// HeaderMap maps header cells onto column names.
	HeaderMap map[string]string
}

// OptionsFrom reads parser.options: sheet, has_header, skip_rows, header_map.
func OptionsFrom(o config.Options) Options {
	return Options{
		Sheet:     o.String("sheet", ""),
		HasHeader: o.Bool("has_header", true),
		SkipRows:  o.Int("skip_rows", 0),
		HeaderMap: o.StringMap("header_map"),
	}
}

// Parser implements parser.Parser for XLSX workbooks.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

var _ parser.Parser = (*Parser)(nil)

// Stream opens the workbook and sends one aligned row per data row. Cells
// arrive as displayed by the workbook's number formats. Trailing empty
// cells are dropped by the workbook reader, so short rows are padded rather
// than rejected. Fully empty rows are skipped.
func (p *Parser) Stream(
	ctx context.Context,
	src io.ReadCloser,
	columns []string,
	out chan<- []string,
	onErr parser.ErrFn,
) error {
	defer src.Close()

	log := zap.L().Named("xlsx")

	f, err := excelize.OpenReader(src)
	if err != nil {
		return eris.Wrap(err, "xlsx: open workbook")
	}
	defer f.Close()

	sheet := p.opt.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return eris.New("xlsx: workbook has no sheets")
		}
		sheet = list[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return eris.Wrapf(err, "xlsx: sheet %q", sheet)
	}
	defer rows.Close()

	line := 0
	next := func() ([]string, bool, error) {
		if !rows.Next() {
			return nil, false, rows.Error()
		}
		line++
		cells, err := rows.Columns()
		return cells, true, err
	}

	for i := 0; i < p.opt.SkipRows; i++ {
		_, ok, err := next()
		if err != nil {
			return eris.Wrap(err, "xlsx: skip leading rows")
		}
		if !ok {
			return eris.Errorf("xlsx: sheet %q has fewer than %d rows", sheet, p.opt.SkipRows)
		}
	}

	var idx []int
	if p.opt.HasHeader {
		hdr, ok, err := next()
		if err != nil {
			return eris.Wrap(err, "xlsx: read header")
		}
		if !ok {
			return eris.Errorf("xlsx: sheet %q is empty", sheet)
		}
		idx, err = parser.HeaderIndex(hdr, columns, p.opt.HeaderMap)
		if err != nil {
			return err
		}
		if missing := parser.Missing(idx, columns); len(missing) > 0 {
			log.Warn("columns missing from header load as empty", zap.Strings("columns", missing))
		}
	} else {
		idx = parser.Positional(len(columns))
	}

	emitted := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cells, ok, err := next()
		if err != nil {
			if !ok {
				return eris.Wrap(err, "xlsx: read rows")
			}
			if onErr != nil {
				onErr(line, eris.Wrap(err, "xlsx: read row"))
			}
			continue
		}
		if !ok {
			log.Debug("xlsx done", zap.String("sheet", sheet), zap.Int("rows", emitted))
			return nil
		}
		if blank(cells) {
			continue
		}

		select {
		case out <- parser.Align(cells, idx):
			emitted++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
