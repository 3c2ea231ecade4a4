// Package config defines the configuration model of the cleaning pipeline
// and loads it from a JSON or YAML pipeline file plus LAYOFFS_* environment
// overrides.
//
// Example (trimmed):
//
//	{
//	  "job": "layoffs-2023",
//	  "source":   { "kind": "file", "file": { "path": "layoffs.csv" } },
//	  "parser":   { "kind": "csv", "options": { "null_tokens": ["NULL"] } },
//	  "transform":[
//	    { "kind": "dedupe" },
//	    { "kind": "normalize", "options": { "trim": ["company"] } },
//	    { "kind": "backfill", "options": { "column": "industry", "key_columns": ["company"] } },
//	    { "kind": "prune" }
//	  ],
//	  "storage":  { "kind": "sqlite", "db": { "dsn": "layoffs.db", "source_table": "layoffs" } }
//	}
package config

import (
	"encoding/json"
)

// Pipeline describes the whole job. It is the top-level object decoded from a
// pipeline file.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job" mapstructure:"job"`

	// Source describes where the raw dataset comes from (load only).
	Source Source `json:"source" mapstructure:"source"`

	// Parser configures how raw bytes are turned into rows (load only).
	Parser Parser `json:"parser" mapstructure:"parser"`

	// Transform lists the ordered cleaning stages. Each has a kind and an
	// options bag whose shape is defined by the stage.
	Transform []Transform `json:"transform" mapstructure:"transform"`

	Storage Storage       `json:"storage" mapstructure:"storage"`
	Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`
	Log     LogConfig     `json:"log" mapstructure:"log"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
}

// RuntimeConfig controls batching and channel buffer sizes of the loader.
type RuntimeConfig struct {
	BatchSize     int `json:"batch_size" mapstructure:"batch_size"`
	ChannelBuffer int `json:"channel_buffer" mapstructure:"channel_buffer"`
}

// Source identifies the raw input.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind" mapstructure:"kind"`

	File SourceFile `json:"file" mapstructure:"file"`
	HTTP SourceHTTP `json:"http" mapstructure:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path" mapstructure:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL string `json:"url" mapstructure:"url"`
	// TimeoutSecs bounds each attempt; zero uses the client default.
	TimeoutSecs int `json:"timeout_secs" mapstructure:"timeout_secs"`
	// Retries is the number of retries after the first attempt.
	Retries int `json:"retries" mapstructure:"retries"`
}

// Parser selects how to parse the raw source into rows.
type Parser struct {
	// Kind selects the parser implementation: "csv" or "xlsx".
	Kind string `json:"kind" mapstructure:"kind"`

	// Options is interpreted by the parser. Common keys:
	//   header_map (object), null_tokens ([]string), keep_empty ([]string)
	// CSV: comma (string), trim_space (bool)
	// XLSX: sheet (string)
	Options Options `json:"options" mapstructure:"options"`
}

// Transform defines a single cleaning stage.
type Transform struct {
	// Kind is one of "dedupe", "normalize", "backfill", "prune".
	Kind string `json:"kind" mapstructure:"kind"`

	Options Options `json:"options" mapstructure:"options"`
}

// Storage selects the relational backend.
type Storage struct {
	// Kind is a registered backend: "sqlite", "postgres", "mysql", "mssql".
	Kind string   `json:"kind" mapstructure:"kind"`
	DB   DBConfig `json:"db" mapstructure:"db"`
}

// DBConfig configures tables and connection.
type DBConfig struct {
	// DSN is passed to the backend driver as-is.
	DSN string `json:"dsn" mapstructure:"dsn"`

	// SourceTable holds the raw dataset; it is never modified by a run.
	SourceTable string `json:"source_table" mapstructure:"source_table"`

	// WorkingTable is the snapshot the stages clean.
	WorkingTable string `json:"working_table" mapstructure:"working_table"`

	// IfExists controls load when the source table is present:
	// "fail" (default), "append" or "replace".
	IfExists string `json:"if_exists" mapstructure:"if_exists"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend is "none", "pushgateway" or "datadog".
	Backend        string `json:"backend" mapstructure:"backend"`
	PushgatewayURL string `json:"pushgateway_url" mapstructure:"pushgateway_url"`
	StatsdAddr     string `json:"statsd_addr" mapstructure:"statsd_addr"`
}

// Options is a small helper to fetch typed values from free-form maps. It
// performs only minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// YAML numbers as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of
// strings. A single string is returned as a one-element slice. Returns nil
// when the key is missing.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		case string:
			return []string{vv}
		}
	}
	return nil
}

// Maps returns the objects of an array value for key, e.g. a list of rules.
// Non-object elements are skipped.
func (o Options) Maps(key string) []Options {
	v, ok := o[key]
	if !ok {
		return nil
	}
	var out []Options
	switch vv := v.(type) {
	case []any:
		for _, x := range vv {
			switch m := x.(type) {
			case map[string]any:
				out = append(out, Options(m))
			case Options:
				out = append(out, m)
			}
		}
	case []map[string]any:
		for _, m := range vv {
			out = append(out, Options(m))
		}
	case []Options:
		out = vv
	}
	return out
}

// Sub returns the nested object at key, or nil.
func (o Options) Sub(key string) Options {
	switch m := o[key].(type) {
	case map[string]any:
		return Options(m)
	case Options:
		return m
	}
	return nil
}

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// Any returns the raw value for key.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON makes a missing or null "options" object decode to a non-nil,
// empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
