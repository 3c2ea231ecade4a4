// Package datasource opens the raw bytes of the dataset: a local file or an
// HTTP download.
package datasource

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"

	"layoffs/internal/config"
	"layoffs/internal/datasource/file"
	"layoffs/internal/datasource/httpds"
)

// Source yields a fresh reader over the raw input. The caller closes it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// New builds the Source described by source.kind: "file" or "http".
func New(cfg config.Source) (Source, error) {
	switch cfg.Kind {
	case "file", "":
		return file.NewLocal(cfg.File.Path), nil
	case "http":
		c := httpds.NewClient(httpds.Config{
			Timeout:    time.Duration(cfg.HTTP.TimeoutSecs) * time.Second,
			MaxRetries: cfg.HTTP.Retries,
		})
		return httpds.NewSource(c, cfg.HTTP.URL), nil
	default:
		return nil, eris.Errorf("unsupported source.kind=%s", cfg.Kind)
	}
}
