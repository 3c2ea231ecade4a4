// Package parser holds what the raw-file parsers share: the Parser contract
// and the header mapping that aligns source columns to the nine business
// columns of the layoffs table.
package parser

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrFn receives recoverable per-row errors. Rows reported here are dropped.
type ErrFn func(line int, err error)

// Parser streams the data rows of one raw file. Every row sent on out is
// aligned to columns; a column absent from the input arrives as "".
// Implementations close src and never close out.
type Parser interface {
	Stream(ctx context.Context, src io.ReadCloser, columns []string, out chan<- []string, onErr ErrFn) error
}

// CanonicalHeader maps a header cell onto a column name: header_map wins
// (matched case-insensitively), otherwise the cell is trimmed, lower-cased
// and spaces become underscores ("Total Laid Off" -> "total_laid_off").
func CanonicalHeader(cell string, headerMap map[string]string) string {
	h := strings.TrimSpace(cell)
	for from, to := range headerMap {
		if strings.EqualFold(strings.TrimSpace(from), h) {
			return to
		}
	}
	return strings.ReplaceAll(strings.ToLower(h), " ", "_")
}

// HeaderIndex returns, for each target column, the index of its source
// cell in header, or -1. It fails when no column matches at all, which
// almost always means the file has no header row or the wrong delimiter.
func HeaderIndex(header, columns []string, headerMap map[string]string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, cell := range header {
		name := CanonicalHeader(cell, headerMap)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	idx := make([]int, len(columns))
	found := 0
	for t, c := range columns {
		idx[t] = -1
		if si, ok := pos[c]; ok {
			idx[t] = si
			found++
		}
	}
	if found == 0 {
		return nil, eris.Errorf("parser: header %q matches none of %v", header, columns)
	}
	return idx, nil
}

// Missing lists the columns HeaderIndex could not place.
func Missing(idx []int, columns []string) []string {
	var out []string
	for t, si := range idx {
		if si < 0 {
			out = append(out, columns[t])
		}
	}
	return out
}

// Align copies the cells of rec into a new row positioned by idx.
func Align(rec []string, idx []int) []string {
	row := make([]string, len(idx))
	for t, si := range idx {
		if si >= 0 && si < len(rec) {
			row[t] = rec[si]
		}
	}
	return row
}

// Positional returns the identity index for headerless input.
func Positional(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
