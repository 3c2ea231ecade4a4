package transformer

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"layoffs/internal/record"
)

// DefaultNullTokens are the field values loaded as SQL NULL.
var DefaultNullTokens = []string{"NULL"}

// RawSpec describes how parsed text fields become values of the raw source
// table. The raw table keeps the empty string in text columns because the
// cleaning stages treat it as a distinct "unknown" marker.
type RawSpec struct {
	// NullTokens are matched after trimming surrounding whitespace.
	NullTokens []string
	// KeepEmpty lists the text columns where an empty field stays "".
	// Other empty fields load as NULL.
	KeepEmpty []string
}

// DefaultRawSpec keeps "" in every text column and treats "NULL" as NULL.
func DefaultRawSpec() RawSpec {
	keep := make([]string, 0, len(record.Columns))
	for _, c := range record.Columns {
		if record.Kind(c) == record.KindText {
			keep = append(keep, c)
		}
	}
	return RawSpec{NullTokens: DefaultNullTokens, KeepEmpty: keep}
}

// RejectFn is told about every row CoerceLoop drops. line is the 1-based
// position of the row on the input channel.
type RejectFn func(line int, err error)

// CoerceLoop reads parsed rows from in, coerces them according to the raw
// column kinds of columns and sends database-ready rows to out. It returns
// when in is closed or ctx is canceled; the caller closes out.
//
// Rows that cannot be coerced (wrong width, non-integer text in an integer
// column) are dropped and reported through onReject.
func CoerceLoop(
	ctx context.Context,
	columns []string,
	in <-chan []string,
	out chan<- []any,
	spec RawSpec,
	onReject RejectFn,
) {
	plan := compilePlan(columns, spec)

	line := 0
	for raw := range in {
		line++
		select {
		case <-ctx.Done():
			return
		default:
		}

		if len(raw) != len(columns) {
			if onReject != nil {
				onReject(line, eris.Errorf("transformer: %d fields for %d columns", len(raw), len(columns)))
			}
			continue
		}

		// One slice per row: the loader keeps rows until the batch flushes.
		row := make([]any, len(columns))
		var rowErr error
		for i := range columns {
			if err := plan[i](&row[i], raw[i]); err != nil {
				rowErr = eris.Wrapf(err, "transformer: column %s", columns[i])
				break
			}
		}
		if rowErr != nil {
			if onReject != nil {
				onReject(line, rowErr)
			}
			continue
		}

		select {
		case out <- row:
		case <-ctx.Done():
			return
		}
	}
}

type coerceFn func(dst *any, s string) error

func compilePlan(columns []string, spec RawSpec) []coerceFn {
	tokens := spec.NullTokens
	if tokens == nil {
		tokens = DefaultNullTokens
	}
	isNull := func(s string) bool {
		t := strings.TrimSpace(s)
		for _, tok := range tokens {
			if t == tok {
				return true
			}
		}
		return false
	}
	keep := make(map[string]bool, len(spec.KeepEmpty))
	for _, c := range spec.KeepEmpty {
		keep[c] = true
	}

	plan := make([]coerceFn, len(columns))
	for i, col := range columns {
		switch record.Kind(col) {
		case record.KindInt:
			plan[i] = func(dst *any, s string) error {
				s = strings.TrimSpace(s)
				if s == "" || isNull(s) {
					*dst = nil
					return nil
				}
				v, ok := toIntFast(s)
				if !ok {
					return eris.Errorf("not an integer: %q", s)
				}
				*dst = v
				return nil
			}
		default:
			keepEmpty := keep[col]
			// Text is stored verbatim; whitespace is the normalizer's business.
			plan[i] = func(dst *any, s string) error {
				switch {
				case isNull(s):
					*dst = nil
				case s == "" && !keepEmpty:
					*dst = nil
				default:
					*dst = s
				}
				return nil
			}
		}
	}
	return plan
}

// toIntFast parses integers and only falls back to float parsing when the
// field contains a '.' (inputs like "42.0").
func toIntFast(s string) (int64, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if strings.IndexByte(s, '.') >= 0 {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
	}
	return 0, false
}
