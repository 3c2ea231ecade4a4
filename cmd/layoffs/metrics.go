package main

import (
	"go.uber.org/zap"

	"layoffs/internal/config"
	"layoffs/internal/metrics"
	"layoffs/internal/metrics/datadog"
	"layoffs/internal/metrics/prompush"
)

// setupMetrics installs the configured backend. A backend that cannot be
// built is logged and the run continues without metrics.
func setupMetrics(p config.Pipeline) {
	log := zap.L().Named("metrics")
	switch p.Metrics.Backend {
	case "", "none":
		metrics.Reset()
		log.Debug("metrics disabled")
	case "pushgateway":
		b, err := prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
		if err != nil {
			log.Warn("pushgateway backend unavailable; metrics disabled", zap.Error(err))
			return
		}
		metrics.SetBackend(b)
		log.Debug("metrics enabled", zap.String("backend", "pushgateway"), zap.String("url", p.Metrics.PushgatewayURL))
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       p.Metrics.StatsdAddr,
			Namespace:  "layoffs.",
			GlobalTags: []string{"job:" + p.Job},
		})
		if err != nil {
			log.Warn("datadog backend unavailable; metrics disabled", zap.Error(err))
			return
		}
		metrics.SetBackend(b)
		log.Debug("metrics enabled", zap.String("backend", "datadog"), zap.String("addr", p.Metrics.StatsdAddr))
	default:
		log.Warn("unknown metrics backend; metrics disabled", zap.String("backend", p.Metrics.Backend))
	}
}
