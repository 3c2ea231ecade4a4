package builtin

import (
	"fmt"
	"sort"
	"time"

	"layoffs/internal/record"
)

func sortedBySeq(rows []*record.Layoff) []*record.Layoff {
	out := make([]*record.Layoff, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format(record.ISODateLayout)
	default:
		return fmt.Sprint(x)
	}
}
