// Package metrics records run counters and step timings for the batch jobs.
// Callers only see the Backend interface; concrete sinks live in subpackages
// and the default backend discards everything, so recording is always safe
package metrics

import (
	"sync"
	"time"

	"tally/internal/platform/config"
)

// Metric names shared by every backend
const (
	StepTotal    = "tally_step_total"
	StepDuration = "tally_step_duration_seconds"
	RecordsTotal = "tally_records_total"
	ChunksTotal  = "tally_chunks_total"
)

// Labels are string key/value pairs attached to a metric
type Labels map[string]string

// Backend is the sink the recorders write to
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or drains buffered samples; called once at process exit
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

// SetBackend installs b as the process-wide sink. nil keeps the current one
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the installed backend
func Flush() error { return current().Flush() }

// RecordStep counts one execution of a step and observes its duration
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds delta to the record counter for kind.
// Kinds used by the jobs: read, clean, rejected, inserted_<table>, deleted_<table>, mirror_failed
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordChunks counts processed input chunks
func RecordChunks(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(ChunksTotal, float64(delta), Labels{"job": job})
}

// Backend names accepted by CORE_METRICS_BACKEND
const (
	BackendNone     = "none"
	BackendPromPush = "prompush"
	BackendDatadog  = "datadog"
)

// Config selects and configures a backend
type Config struct {
	Backend        string
	PushgatewayURL string
	DogstatsdAddr  string
	Namespace      string
}

// ConfigFromEnv reads CORE_METRICS_* from the root conf
func ConfigFromEnv(root config.Conf) Config {
	c := root.Prefix("CORE_METRICS_")
	return Config{
		Backend:        c.MayEnum("BACKEND", BackendNone, BackendNone, BackendPromPush, BackendDatadog),
		PushgatewayURL: c.MayString("PUSHGATEWAY_URL", ""),
		DogstatsdAddr:  c.MayString("DOGSTATSD_ADDR", ""),
		Namespace:      c.MayString("NAMESPACE", ""),
	}
}
