// This file adds a lightweight linter for Pipeline values. It performs static
// checks over a decoded Pipeline and returns a list of issues (errors and
// warnings) that callers surface in the CLI or tests.

package config

import (
	"fmt"
	"strings"

	"layoffs/internal/record"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single finding. Path is a dotted path into the config
// (e.g. "storage.kind", "transform[1].options.collapse[0].pattern").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Transform kinds understood by the builtin package.
const (
	KindDedupe    = "dedupe"
	KindNormalize = "normalize"
	KindBackfill  = "backfill"
	KindPrune     = "prune"
)

// ValidatePipeline performs static validation of p. It does not mutate the
// pipeline. Source and parser problems are reported as warnings because only
// the load command needs them.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels logs and metrics",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateTransforms(p.Transform)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.file.path",
				Message:  "file source has no path; load will fail",
			})
		}
	case "http":
		u := strings.TrimSpace(s.HTTP.URL)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.http.url",
				Message:  fmt.Sprintf("http source url %q is not an http(s) URL; load will fail", u),
			})
		}
	case "":
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.kind",
			Message:  "source.kind is empty; load will fail",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q", s.Kind),
		})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue
	switch p.Kind {
	case "csv", "xlsx":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unknown parser kind %q; expected csv or xlsx", p.Kind),
		})
	}
	for src, dst := range p.Options.StringMap("header_map") {
		if !record.IsColumn(dst) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.header_map." + src,
				Message:  fmt.Sprintf("header maps to unknown column %q", dst),
			})
		}
	}
	issues = append(issues, checkColumns("parser.options.keep_empty", p.Options.StringSlice("keep_empty"))...)
	return issues
}

func checkColumns(path string, cols []string) []Issue {
	var issues []Issue
	for i, c := range cols {
		if !record.IsColumn(c) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("%s[%d]", path, i),
				Message:  fmt.Sprintf("unknown column %q", c),
			})
		}
	}
	return issues
}

func checkColumn(path, col string, required bool) []Issue {
	if col == "" && !required {
		return nil
	}
	if !record.IsColumn(col) {
		return []Issue{{Severity: SeverityError, Path: path, Message: fmt.Sprintf("unknown column %q", col)}}
	}
	return nil
}

func checkTextColumn(path, col string) []Issue {
	if issues := checkColumn(path, col, true); issues != nil {
		return issues
	}
	if record.Kind(col) != record.KindText {
		return []Issue{{Severity: SeverityError, Path: path, Message: fmt.Sprintf("column %q is not a text column", col)}}
	}
	return nil
}

func validateTransforms(ts []Transform) []Issue {
	var issues []Issue

	if len(ts) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "transform",
			Message:  "no transforms configured; the working table will be a plain copy",
		})
		return issues
	}

	dedupeAt, normalizeAt := -1, -1
	reparsesDate := false

	for i, t := range ts {
		base := fmt.Sprintf("transform[%d]", i)
		switch t.Kind {
		case "":
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".kind", Message: "transform kind must not be empty"})
		case KindDedupe:
			if dedupeAt < 0 {
				dedupeAt = i
			}
			issues = append(issues, checkColumns(base+".options.keys", t.Options.StringSlice("keys"))...)
		case KindNormalize:
			if normalizeAt < 0 {
				normalizeAt = i
			}
			iss, date := validateNormalize(base+".options", t.Options)
			issues = append(issues, iss...)
			reparsesDate = reparsesDate || date
		case KindBackfill:
			issues = append(issues, validateBackfill(base+".options", t.Options)...)
		case KindPrune:
			issues = append(issues, checkColumns(base+".options.all_null", t.Options.StringSlice("all_null"))...)
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".kind",
				Message:  fmt.Sprintf("unknown transform kind %q", t.Kind),
			})
		}
	}

	if dedupeAt >= 0 && normalizeAt > dedupeAt {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     fmt.Sprintf("transform[%d]", dedupeAt),
			Message:  "dedupe runs before normalize; rows differing only by formatting will both survive",
		})
	}
	if !reparsesDate {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "transform",
			Message:  "no normalize transform reparses the date column; it will stay text",
		})
	}
	return issues
}

func validateNormalize(path string, o Options) ([]Issue, bool) {
	var issues []Issue

	issues = append(issues, checkColumns(path+".trim", o.StringSlice("trim"))...)

	for i, r := range o.Maps("collapse") {
		p := fmt.Sprintf("%s.collapse[%d]", path, i)
		issues = append(issues, checkTextColumn(p+".column", r.String("column", ""))...)
		if m := r.String("match", "prefix"); m != "prefix" && m != "exact" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".match", Message: fmt.Sprintf("match must be prefix or exact, got %q", m)})
		}
		if r.String("pattern", "") == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".pattern", Message: "pattern must not be empty"})
		}
		if r.String("canonical", "") == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".canonical", Message: "canonical must not be empty"})
		}
	}

	for i, r := range o.Maps("strip_trailing") {
		p := fmt.Sprintf("%s.strip_trailing[%d]", path, i)
		issues = append(issues, checkTextColumn(p+".column", r.String("column", ""))...)
		if r.String("terminator", "") == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: p + ".terminator", Message: "terminator must not be empty"})
		}
	}

	d := o.Sub("date")
	if d == nil {
		return issues, false
	}
	issues = append(issues, checkColumn(path+".date.column", d.String("column", record.ColDate), true)...)
	if c := d.String("column", record.ColDate); c != record.ColDate {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".date.column", Message: "only the date column can be reparsed"})
	}
	return issues, true
}

func validateBackfill(path string, o Options) []Issue {
	var issues []Issue
	issues = append(issues, checkTextColumn(path+".column", o.String("column", record.ColIndustry))...)
	issues = append(issues, checkColumns(path+".key_columns", o.StringSlice("key_columns"))...)
	if p := o.String("on_ambiguous", "first"); p != "first" && p != "skip" {
		issues = append(issues, Issue{Severity: SeverityError, Path: path + ".on_ambiguous", Message: fmt.Sprintf("on_ambiguous must be first or skip, got %q", p)})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	db := s.DB
	if strings.TrimSpace(db.DSN) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.db.dsn", Message: "storage.db.dsn must not be empty"})
	}
	if strings.TrimSpace(db.SourceTable) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.db.source_table", Message: "storage.db.source_table must not be empty"})
	}
	if strings.TrimSpace(db.WorkingTable) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.db.working_table", Message: "storage.db.working_table must not be empty"})
	}
	if db.SourceTable != "" && strings.EqualFold(db.SourceTable, db.WorkingTable) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.working_table",
			Message:  "working_table must differ from source_table; the source is never modified",
		})
	}
	switch db.IfExists {
	case "", "fail", "append", "replace":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.if_exists",
			Message:  fmt.Sprintf("if_exists must be fail, append or replace, got %q", db.IfExists),
		})
	}

	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; the loader will fall back to %d", r.BatchSize, DefaultBatchSize),
		})
	}
	if r.ChannelBuffer < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.channel_buffer",
			Message:  "channel_buffer must not be negative",
		})
	}

	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	switch m.Backend {
	case "", "none", "datadog":
		return nil
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			return []Issue{{Severity: SeverityError, Path: "metrics.pushgateway_url", Message: "pushgateway backend requires a URL"}}
		}
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Path:     "metrics.backend",
		Message:  fmt.Sprintf("unknown metrics backend %q", m.Backend),
	}}
}
