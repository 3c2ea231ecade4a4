// Package exporter writes a layoffs table out as CSV or XLSX for the people
// who analyse the cleaned data downstream.
package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"layoffs/internal/record"
	"layoffs/internal/storage"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const utf8BOM = "\uFEFF"

// Options tune the output.
type Options struct {
	// Format is "csv" (default) or "xlsx".
	Format string
	// BOM prefixes CSV output with a UTF-8 byte order mark so spreadsheet
	// tools pick the right encoding.
	BOM bool
	// Comma is the CSV field separator. Default ','.
	Comma rune
	// Null is the CSV text written for NULL. Default "".
	Null string
	// Sheet names the XLSX worksheet. Default "layoffs".
	Sheet string
}

// Export reads every row of table and writes it to w with a header row. It
// returns the number of data rows written.
func Export(ctx context.Context, repo storage.Repository, table string, w io.Writer, opt Options) (int, error) {
	rows, err := repo.ReadRows(ctx, table, record.Columns)
	if err != nil {
		return 0, eris.Wrapf(err, "exporter: read %s", table)
	}
	switch opt.Format {
	case FormatCSV, "":
		err = WriteCSV(w, record.Columns, rows, opt)
	case FormatXLSX:
		err = WriteXLSX(w, record.Columns, rows, opt)
	default:
		return 0, eris.Errorf("unsupported export.format=%s", opt.Format)
	}
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// WriteCSV writes header and rows as CSV.
func WriteCSV(w io.Writer, header []string, rows [][]any, opt Options) error {
	if opt.BOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return eris.Wrap(err, "exporter: write bom")
		}
	}
	cw := csv.NewWriter(w)
	if opt.Comma != 0 {
		cw.Comma = opt.Comma
	}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "exporter: write header")
	}
	rec := make([]string, len(header))
	for i, r := range rows {
		for j, v := range r {
			if v == nil {
				rec[j] = opt.Null
				continue
			}
			rec[j] = text(v)
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "exporter: write row %d", i+1)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "exporter: flush")
}

// WriteXLSX writes header and rows into a single worksheet using the
// excelize stream writer.
func WriteXLSX(w io.Writer, header []string, rows [][]any, opt Options) error {
	sheet := opt.Sheet
	if sheet == "" {
		sheet = "layoffs"
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return eris.Wrap(err, "exporter: name sheet")
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return eris.Wrap(err, "exporter: stream writer")
	}

	write := func(n int, cells []any) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		return sw.SetRow(cell, cells)
	}

	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := write(1, hdr); err != nil {
		return eris.Wrap(err, "exporter: write header")
	}
	for i, r := range rows {
		cells := make([]any, len(r))
		for j, v := range r {
			cells[j] = cell(v)
		}
		if err := write(i+2, cells); err != nil {
			return eris.Wrapf(err, "exporter: write row %d", i+1)
		}
	}
	if err := sw.Flush(); err != nil {
		return eris.Wrap(err, "exporter: flush sheet")
	}
	if _, err := f.WriteTo(w); err != nil {
		return eris.Wrap(err, "exporter: write workbook")
	}
	return nil
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(record.ISODateLayout)
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

// cell keeps numbers numeric and renders dates as ISO text.
func cell(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int64, int, int32, float64:
		return x
	case time.Time:
		return x.Format(record.ISODateLayout)
	}
	return text(v)
}
