package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"layoffs/internal/record"
)

// Defaults applied before the pipeline file and the environment.
const (
	DefaultSourceTable  = "layoffs"
	DefaultWorkingTable = "layoffs_staging"
	DefaultDSN          = "layoffs.db"
	DefaultBatchSize    = 500
	DefaultChanBuffer   = 1024
)

// EnvPrefix is the prefix of environment overrides, e.g.
// LAYOFFS_STORAGE_DB_DSN for storage.db.dsn.
const EnvPrefix = "LAYOFFS"

// SetDefaults installs the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("job", "layoffs")
	v.SetDefault("source.kind", "file")
	v.SetDefault("source.file.path", "")
	v.SetDefault("source.http.url", "")
	v.SetDefault("source.http.timeout_secs", 60)
	v.SetDefault("source.http.retries", 3)
	v.SetDefault("parser.kind", "csv")
	v.SetDefault("storage.kind", "sqlite")
	v.SetDefault("storage.db.dsn", DefaultDSN)
	v.SetDefault("storage.db.source_table", DefaultSourceTable)
	v.SetDefault("storage.db.working_table", DefaultWorkingTable)
	v.SetDefault("storage.db.if_exists", "fail")
	v.SetDefault("runtime.batch_size", DefaultBatchSize)
	v.SetDefault("runtime.channel_buffer", DefaultChanBuffer)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.statsd_addr", "127.0.0.1:8125")
}

// Load reads the pipeline file at path (JSON or YAML, by extension) and
// applies environment overrides. An empty path yields defaults plus
// environment only. When the file configures no transforms the canonical
// recipe from DefaultTransforms is used.
func Load(path string) (Pipeline, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Pipeline{}, eris.Wrapf(err, "config: read %s", path)
		}
	}

	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, eris.Wrap(err, "config: unmarshal")
	}
	for i := range p.Transform {
		if p.Transform[i].Options == nil {
			p.Transform[i].Options = Options{}
		}
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	if len(p.Transform) == 0 {
		p.Transform = DefaultTransforms()
	}
	return p, nil
}

// DefaultTransforms is the canonical cleaning recipe for the layoffs dataset:
// exact-duplicate removal, free-text trim, crypto industry collapse, United
// States trailing period strip, date reparse, industry backfill by company,
// and removal of rows without any layoff figure.
func DefaultTransforms() []Transform {
	return []Transform{
		{Kind: "dedupe", Options: Options{}},
		{Kind: "normalize", Options: Options{
			"trim": []any{
				record.ColCompany, record.ColLocation, record.ColIndustry,
				record.ColStage, record.ColCountry,
			},
			"collapse": []any{map[string]any{
				"column":    record.ColIndustry,
				"match":     "prefix",
				"pattern":   "Crypto",
				"canonical": "Crypto",
			}},
			"strip_trailing": []any{map[string]any{
				"column":     record.ColCountry,
				"terminator": ".",
				"prefix":     "United States",
			}},
			"date": map[string]any{
				"column": record.ColDate,
				"layout": record.SourceDateLayout,
			},
		}},
		{Kind: "backfill", Options: Options{
			"column":       record.ColIndustry,
			"key_columns":  []any{record.ColCompany},
			"on_ambiguous": "first",
		}},
		{Kind: "prune", Options: Options{
			"all_null": []any{record.ColTotalLaidOff, record.ColPercentageLaidOff},
		}},
	}
}
