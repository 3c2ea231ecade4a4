// Package record defines the layoff event row that flows through the cleaning
// pipeline, together with the column catalog of the dataset and helpers to
// move rows in and out of positional []any slices used by storage backends.
package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Business column names, in table order.
const (
	ColCompany             = "company"
	ColLocation            = "location"
	ColIndustry            = "industry"
	ColTotalLaidOff        = "total_laid_off"
	ColPercentageLaidOff   = "percentage_laid_off"
	ColDate                = "date"
	ColStage               = "stage"
	ColCountry             = "country"
	ColFundsRaisedMillions = "funds_raised_millions"

	// ColRowNum is the transient duplicate rank column. It only exists between
	// deduplication and pruning.
	ColRowNum = "row_num"
)

// Logical column kinds. Storage backends map them onto SQL types.
const (
	KindText = "text"
	KindInt  = "int"
	KindDate = "date"
)

// Columns lists the nine business columns in table order.
var Columns = []string{
	ColCompany,
	ColLocation,
	ColIndustry,
	ColTotalLaidOff,
	ColPercentageLaidOff,
	ColDate,
	ColStage,
	ColCountry,
	ColFundsRaisedMillions,
}

// Kind returns the logical kind of a business column in the raw source
// table. The date column is text until it has been reparsed.
func Kind(col string) string {
	switch col {
	case ColTotalLaidOff, ColFundsRaisedMillions, ColRowNum:
		return KindInt
	default:
		return KindText
	}
}

// IsColumn reports whether col is one of the nine business columns.
func IsColumn(col string) bool {
	for _, c := range Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Layoff is one row of the working table. Every business column is nullable.
type Layoff struct {
	// Seq is the 1-based ingestion order of the row in the working table.
	Seq int64
	// RowNum is the rank of the row inside its duplicate group; zero when no
	// rank has been assigned.
	RowNum int

	Company             *string
	Location            *string
	Industry            *string
	TotalLaidOff        *int64
	PercentageLaidOff   *string
	Date                *string
	DateValue           *time.Time
	Stage               *string
	Country             *string
	FundsRaisedMillions *int64
}

// Str returns a pointer to a copy of s.
func Str(s string) *string { return &s }

// Int returns a pointer to a copy of n.
func Int(n int64) *int64 { return &n }

// Deref returns the string behind p, or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (l *Layoff) textRef(col string) **string {
	switch col {
	case ColCompany:
		return &l.Company
	case ColLocation:
		return &l.Location
	case ColIndustry:
		return &l.Industry
	case ColPercentageLaidOff:
		return &l.PercentageLaidOff
	case ColDate:
		return &l.Date
	case ColStage:
		return &l.Stage
	case ColCountry:
		return &l.Country
	}
	return nil
}

func (l *Layoff) intRef(col string) **int64 {
	switch col {
	case ColTotalLaidOff:
		return &l.TotalLaidOff
	case ColFundsRaisedMillions:
		return &l.FundsRaisedMillions
	}
	return nil
}

// Text returns the value of a text column. ok is false when col is not a text
// column.
func (l *Layoff) Text(col string) (v *string, ok bool) {
	ref := l.textRef(col)
	if ref == nil {
		return nil, false
	}
	return *ref, true
}

// SetText replaces the value of a text column.
func (l *Layoff) SetText(col string, v *string) error {
	ref := l.textRef(col)
	if ref == nil {
		return eris.Errorf("record: %q is not a text column", col)
	}
	*ref = v
	return nil
}

// Value returns the column value as nil, string, int64 or time.Time. The
// date column yields time.Time once it has been reparsed.
func (l *Layoff) Value(col string) any {
	if col == ColDate && l.DateValue != nil {
		return *l.DateValue
	}
	if ref := l.textRef(col); ref != nil {
		if *ref == nil {
			return nil
		}
		return **ref
	}
	if ref := l.intRef(col); ref != nil {
		if *ref == nil {
			return nil
		}
		return **ref
	}
	if col == ColRowNum {
		return int64(l.RowNum)
	}
	return nil
}

// IsNull reports whether the column holds SQL NULL.
func (l *Layoff) IsNull(col string) bool {
	return l.Value(col) == nil
}

// Values returns the row positioned by cols. When dateTyped is true the date
// column carries time.Time (or nil), otherwise its raw text.
func (l *Layoff) Values(cols []string, dateTyped bool) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		if c == ColDate {
			switch {
			case dateTyped && l.DateValue != nil:
				out[i] = *l.DateValue
			case dateTyped:
				out[i] = nil
			case l.Date != nil:
				out[i] = *l.Date
			}
			continue
		}
		out[i] = l.Value(c)
	}
	return out
}

// FromValues decodes a positional row as produced by a storage backend.
// Drivers differ in what they hand back: text may arrive as []byte, integers
// as int64, int32 or even text, dates as time.Time or text.
func FromValues(cols []string, vals []any) (*Layoff, error) {
	if len(cols) != len(vals) {
		return nil, eris.Errorf("record: %d values for %d columns", len(vals), len(cols))
	}
	l := &Layoff{}
	for i, c := range cols {
		v := vals[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		if v == nil {
			continue
		}
		switch {
		case c == ColDate:
			switch t := v.(type) {
			case time.Time:
				d := t
				l.DateValue = &d
				s := t.Format(ISODateLayout)
				l.Date = &s
			default:
				s := fmt.Sprint(t)
				l.Date = &s
			}
		case c == ColRowNum:
			n, err := toInt(v)
			if err != nil {
				return nil, eris.Wrapf(err, "record: column %s", c)
			}
			l.RowNum = int(n)
		case l.intRef(c) != nil:
			n, err := toInt(v)
			if err != nil {
				return nil, eris.Wrapf(err, "record: column %s", c)
			}
			*l.intRef(c) = &n
		case l.textRef(c) != nil:
			s := fmt.Sprint(v)
			*l.textRef(c) = &s
		default:
			return nil, eris.Errorf("record: unknown column %q", c)
		}
	}
	return l, nil
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		s := strings.TrimSpace(n)
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return i, nil
		}
		// Some drivers render integral numerics as "12.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, eris.Errorf("not an integer: %q", n)
		}
		return int64(f), nil
	}
	return 0, eris.Errorf("unsupported integer value of type %T", v)
}

// Clone returns a deep copy of l.
func (l *Layoff) Clone() *Layoff {
	c := *l
	for _, col := range Columns {
		if ref := l.textRef(col); ref != nil && *ref != nil {
			*c.textRef(col) = Str(**ref)
		}
		if ref := l.intRef(col); ref != nil && *ref != nil {
			*c.intRef(col) = Int(**ref)
		}
	}
	if l.DateValue != nil {
		d := *l.DateValue
		c.DateValue = &d
	}
	return &c
}
