package builtin

import (
	"github.com/rotisserie/eris"

	"layoffs/internal/config"
	"layoffs/internal/record"
	"layoffs/internal/transformer"
)

// FromConfig constructs the transformer chain from the transform list of a
// pipeline file, in the order given.
func FromConfig(ts []config.Transform) (transformer.Chain, error) {
	c := transformer.Chain{}
	for i, t := range ts {
		switch t.Kind {
		case config.KindDedupe:
			c = append(c, Dedup{Keys: t.Options.StringSlice("keys")})
		case config.KindNormalize:
			c = append(c, normalizeFromOptions(t.Options))
		case config.KindBackfill:
			c = append(c, Backfill{
				Column:      t.Options.String("column", record.ColIndustry),
				KeyColumns:  t.Options.StringSlice("key_columns"),
				OnAmbiguous: t.Options.String("on_ambiguous", OnAmbiguousFirst),
			})
		case config.KindPrune:
			c = append(c, Prune{AllNull: t.Options.StringSlice("all_null")})
		default:
			return nil, eris.Errorf("unsupported transform[%d].kind=%s", i, t.Kind)
		}
	}
	return c, nil
}

func normalizeFromOptions(o config.Options) Normalize {
	n := Normalize{
		Trim: o.StringSlice("trim"),
		NFC:  o.Bool("unicode_nfc", false),
	}
	for _, r := range o.Maps("collapse") {
		n.Collapse = append(n.Collapse, CollapseRule{
			Column:    r.String("column", ""),
			Match:     r.String("match", MatchPrefix),
			Pattern:   r.String("pattern", ""),
			Canonical: r.String("canonical", ""),
			FoldCase:  r.Bool("fold_case", false),
		})
	}
	for _, r := range o.Maps("strip_trailing") {
		n.Strip = append(n.Strip, StripRule{
			Column:     r.String("column", ""),
			Terminator: r.String("terminator", ""),
			Prefix:     r.String("prefix", ""),
		})
	}
	if d := o.Sub("date"); d != nil {
		n.Date = &DateReparse{
			Column: d.String("column", record.ColDate),
			Layout: d.String("layout", record.SourceDateLayout),
		}
	}
	return n
}
