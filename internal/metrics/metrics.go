// Package metrics is a backend-agnostic facade for recording what the
// cleaning pipeline does: how long each stage took, whether it failed, and
// how many rows it saw, removed or rewrote.
//
// A global backend defaults to a no-op so instrumentation is always safe to
// call. Concrete systems live in subpackages (prompush, datadog) and are
// installed with SetBackend, mirroring the storage.Register pattern.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the facade.
const (
	StageTotal    = "layoffs_stage_total"
	StageDuration = "layoffs_stage_duration_seconds"
	RowsTotal     = "layoffs_rows_total"
	BatchesTotal  = "layoffs_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Reset restores the no-op backend.
func Reset() {
	mu.Lock()
	backend = nopBackend{}
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStage records one execution of a pipeline stage: a counter
// partitioned by status and the stage duration.
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"stage":  stage,
		"status": status,
	}
	b := current()
	b.IncCounter(StageTotal, 1, lbls)
	b.ObserveHistogram(StageDuration, d.Seconds(), lbls)
}

// RecordRows adds delta to the row counter for a stage and kind.
//
// Kinds used by the pipeline include "in", "out", "duplicates_removed",
// "blanks_nulled", "backfilled", "ambiguous", "policy_deleted" and, for the
// loader, "parsed", "parse_errors" and "inserted".
func RecordRows(job, stage, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"job":   job,
		"stage": stage,
		"kind":  kind,
	})
}

// RecordBatches increments the loader batch counter for job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
