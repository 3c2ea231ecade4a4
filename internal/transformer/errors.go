package transformer

import (
	"fmt"
	"strings"
)

// BadValue is one value that failed to parse.
type BadValue struct {
	Seq   int64
	Value string
}

// ParseError reports every value of Column that does not match Layout. It is
// returned before any value has been converted.
type ParseError struct {
	Column string
	Layout string
	Rows   []BadValue
}

func (e *ParseError) Error() string {
	const show = 5
	parts := make([]string, 0, show)
	for i, b := range e.Rows {
		if i == show {
			break
		}
		parts = append(parts, fmt.Sprintf("row %d %q", b.Seq, b.Value))
	}
	msg := fmt.Sprintf("transformer: %d value(s) in column %s do not match layout %q: %s",
		len(e.Rows), e.Column, e.Layout, strings.Join(parts, ", "))
	if len(e.Rows) > show {
		msg += fmt.Sprintf(" (and %d more)", len(e.Rows)-show)
	}
	return msg
}

// AmbiguousBackfill is the warning raised when an entity carries more than
// one distinct non-NULL value for the column being filled.
type AmbiguousBackfill struct {
	Column     string
	Key        string
	Candidates []string
	// Chosen is the value written, or nil when the row was left NULL.
	Chosen *string
	// Rows are the Seq numbers of the NULL rows affected.
	Rows []int64
}

func (e *AmbiguousBackfill) Error() string {
	action := "left NULL"
	if e.Chosen != nil {
		action = fmt.Sprintf("filled with %q", *e.Chosen)
	}
	return fmt.Sprintf("transformer: ambiguous %s for %s: candidates %q, %d row(s) %s",
		e.Column, e.Key, e.Candidates, len(e.Rows), action)
}
