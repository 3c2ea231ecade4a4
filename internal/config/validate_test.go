package config

import (
	"path/filepath"
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validPipeline() Pipeline {
	return Pipeline{
		Job:    "layoffs",
		Source: Source{Kind: "file", File: SourceFile{Path: "layoffs.csv"}},
		Parser: Parser{Kind: "csv", Options: Options{}},
		Transform: []Transform{
			{Kind: KindNormalize, Options: Options{"date": map[string]any{"layout": "1/2/2006"}}},
			{Kind: KindDedupe, Options: Options{}},
		},
		Storage: Storage{Kind: "sqlite", DB: DBConfig{
			DSN:          "layoffs.db",
			SourceTable:  "layoffs",
			WorkingTable: "layoffs_staging",
		}},
		Runtime: RuntimeConfig{BatchSize: 100, ChannelBuffer: 10},
	}
}

/*
TestValidatePipeline_MissingJob verifies that an empty Job produces a
SeverityError with path "job".
*/
func TestValidatePipeline_MissingJob(t *testing.T) {
	p := validPipeline()
	p.Job = ""

	issues := ValidatePipeline(p)
	if !hasIssue(t, issues, SeverityError, "job", "job must not be empty") {
		t.Fatalf("expected SeverityError for job; got issues: %+v", issues)
	}
}

/*
TestValidatePipeline_ValidMinimal verifies that a well-formed pipeline with
normalize ahead of dedupe produces no issues at all.
*/
func TestValidatePipeline_ValidMinimal(t *testing.T) {
	issues := ValidatePipeline(validPipeline())
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidateSource_Cases(t *testing.T) {
	t.Run("empty kind", func(t *testing.T) {
		if !hasIssue(t, validateSource(Source{}), SeverityWarning, "source.kind", "empty") {
			t.Fatal("expected warning for empty source.kind")
		}
	})
	t.Run("file without path", func(t *testing.T) {
		issues := validateSource(Source{Kind: "file", File: SourceFile{Path: "  "}})
		if !hasIssue(t, issues, SeverityWarning, "source.file.path", "no path") {
			t.Fatalf("got %+v", issues)
		}
	})
	t.Run("http without scheme", func(t *testing.T) {
		issues := validateSource(Source{Kind: "http", HTTP: SourceHTTP{URL: "example.com/x.csv"}})
		if !hasIssue(t, issues, SeverityWarning, "source.http.url", "not an http(s) URL") {
			t.Fatalf("got %+v", issues)
		}
	})
	t.Run("http ok", func(t *testing.T) {
		if issues := validateSource(Source{Kind: "http", HTTP: SourceHTTP{URL: "https://example.com/x.csv"}}); len(issues) != 0 {
			t.Fatalf("got %+v", issues)
		}
	})
}

func TestValidateParser_Cases(t *testing.T) {
	issues := validateParser(Parser{Kind: "json"})
	if !hasIssue(t, issues, SeverityWarning, "parser.kind", "unknown parser kind") {
		t.Fatalf("got %+v", issues)
	}

	issues = validateParser(Parser{Kind: "xlsx", Options: Options{
		"header_map": map[string]any{"Employer": "employer"},
		"keep_empty": []any{"company", "nope"},
	}})
	if !hasIssue(t, issues, SeverityError, "parser.options.header_map.Employer", "unknown column") {
		t.Fatalf("got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "parser.options.keep_empty[1]", `"nope"`) {
		t.Fatalf("got %+v", issues)
	}
}

func TestValidateTransforms_Cases(t *testing.T) {
	t.Run("none configured", func(t *testing.T) {
		if !hasIssue(t, validateTransforms(nil), SeverityWarning, "transform", "no transforms configured") {
			t.Fatal("expected warning")
		}
	})
	t.Run("empty and unknown kinds", func(t *testing.T) {
		issues := validateTransforms([]Transform{{Kind: ""}, {Kind: "coerce"}})
		if !hasIssue(t, issues, SeverityError, "transform[0].kind", "must not be empty") {
			t.Fatalf("got %+v", issues)
		}
		if !hasIssue(t, issues, SeverityError, "transform[1].kind", `unknown transform kind "coerce"`) {
			t.Fatalf("got %+v", issues)
		}
	})
	t.Run("dedupe before normalize", func(t *testing.T) {
		issues := validateTransforms([]Transform{
			{Kind: KindDedupe, Options: Options{}},
			{Kind: KindNormalize, Options: Options{"date": map[string]any{}}},
		})
		if !hasIssue(t, issues, SeverityWarning, "transform[0]", "dedupe runs before normalize") {
			t.Fatalf("got %+v", issues)
		}
	})
	t.Run("no date reparse", func(t *testing.T) {
		issues := validateTransforms([]Transform{{Kind: KindPrune, Options: Options{}}})
		if !hasIssue(t, issues, SeverityWarning, "transform", "stay text") {
			t.Fatalf("got %+v", issues)
		}
	})
	t.Run("normalize rule shapes", func(t *testing.T) {
		issues := validateTransforms([]Transform{{Kind: KindNormalize, Options: Options{
			"collapse": []any{map[string]any{"column": "total_laid_off", "match": "regex"}},
			"strip_trailing": []any{map[string]any{"column": "country"}},
			"date":     map[string]any{"column": "stage"},
		}}})
		for _, want := range []struct{ path, msg string }{
			{"transform[0].options.collapse[0].column", "not a text column"},
			{"transform[0].options.collapse[0].match", "prefix or exact"},
			{"transform[0].options.collapse[0].pattern", "must not be empty"},
			{"transform[0].options.collapse[0].canonical", "must not be empty"},
			{"transform[0].options.strip_trailing[0].terminator", "must not be empty"},
			{"transform[0].options.date.column", "only the date column"},
		} {
			if !hasIssue(t, issues, SeverityError, want.path, want.msg) {
				t.Fatalf("missing %s (%s) in %+v", want.path, want.msg, issues)
			}
		}
	})
	t.Run("backfill policy", func(t *testing.T) {
		issues := validateTransforms([]Transform{{Kind: KindBackfill, Options: Options{
			"on_ambiguous": "majority",
			"key_columns":  []any{"company", "ceo"},
		}}})
		if !hasIssue(t, issues, SeverityError, "transform[0].options.on_ambiguous", "first or skip") {
			t.Fatalf("got %+v", issues)
		}
		if !hasIssue(t, issues, SeverityError, "transform[0].options.key_columns[1]", `"ceo"`) {
			t.Fatalf("got %+v", issues)
		}
	})
}

func TestValidateStorage_Cases(t *testing.T) {
	t.Run("empty kind", func(t *testing.T) {
		if !hasIssue(t, validateStorage(Storage{}), SeverityError, "storage.kind", "must not be empty") {
			t.Fatal("expected error")
		}
	})
	t.Run("unknown kind and missing fields", func(t *testing.T) {
		issues := validateStorage(Storage{Kind: "oracle", DB: DBConfig{IfExists: "merge"}})
		for _, want := range []struct {
			sev        IssueSeverity
			path, msg string
		}{
			{SeverityWarning, "storage.kind", "unknown storage kind"},
			{SeverityError, "storage.db.dsn", "must not be empty"},
			{SeverityError, "storage.db.source_table", "must not be empty"},
			{SeverityError, "storage.db.working_table", "must not be empty"},
			{SeverityError, "storage.db.if_exists", "fail, append or replace"},
		} {
			if !hasIssue(t, issues, want.sev, want.path, want.msg) {
				t.Fatalf("missing %s in %+v", want.path, issues)
			}
		}
	})
	t.Run("working equals source", func(t *testing.T) {
		issues := validateStorage(Storage{Kind: "sqlite", DB: DBConfig{DSN: "x", SourceTable: "layoffs", WorkingTable: "LAYOFFS"}})
		if !hasIssue(t, issues, SeverityError, "storage.db.working_table", "must differ") {
			t.Fatalf("got %+v", issues)
		}
	})
}

func TestValidateRuntimeAndMetrics(t *testing.T) {
	issues := validateRuntime(RuntimeConfig{BatchSize: 0, ChannelBuffer: -1})
	if !hasIssue(t, issues, SeverityWarning, "runtime.batch_size", "batch_size") {
		t.Fatalf("got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityError, "runtime.channel_buffer", "must not be negative") {
		t.Fatalf("got %+v", issues)
	}

	if !hasIssue(t, validateMetrics(MetricsConfig{Backend: "pushgateway"}), SeverityError, "metrics.pushgateway_url", "requires a URL") {
		t.Fatal("expected pushgateway URL error")
	}
	if !hasIssue(t, validateMetrics(MetricsConfig{Backend: "graphite"}), SeverityError, "metrics.backend", "unknown") {
		t.Fatal("expected backend error")
	}
	if len(validateMetrics(MetricsConfig{Backend: "datadog"})) != 0 {
		t.Fatal("datadog needs no extra settings")
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors([]Issue{{Severity: SeverityWarning}}) {
		t.Fatal("warnings alone are not errors")
	}
	if !HasErrors([]Issue{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Fatal("expected HasErrors")
	}
}

func TestShippedPipelinesValidate(t *testing.T) {
	for _, name := range []string{"layoffs.json", "layoffs-postgres.yaml"} {
		p, err := Load(filepath.Join("..", "..", "configs", "pipelines", name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		for _, iss := range ValidatePipeline(p) {
			if iss.Severity == SeverityError {
				t.Errorf("%s: %v", name, iss)
			}
		}
	}
}
