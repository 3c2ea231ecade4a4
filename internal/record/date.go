package record

import (
	"time"

	"github.com/rotisserie/eris"
)

const (
	// SourceDateLayout is the month/day/4-digit-year text layout of the raw
	// dataset. Month and day may or may not be zero-padded.
	SourceDateLayout = "1/2/2006"

	// ISODateLayout is how typed dates are rendered for export and for
	// backends that store dates as text.
	ISODateLayout = "2006-01-02"
)

// ParseDate parses s with layout into a UTC calendar date.
func ParseDate(layout, s string) (time.Time, error) {
	if layout == "" {
		layout = SourceDateLayout
	}
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "record: parse date %q with layout %q", s, layout)
	}
	return t, nil
}

// FormatDate renders t with layout; the inverse of ParseDate for unpadded
// source text.
func FormatDate(layout string, t time.Time) string {
	if layout == "" {
		layout = SourceDateLayout
	}
	return t.Format(layout)
}
