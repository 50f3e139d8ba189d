package prompush

import (
	"errors"
	"testing"

	"tally/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func readCounter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write: %v", err)
	}
	if m.GetCounter() == nil {
		t.Fatalf("metric has no counter value")
	}
	return m.GetCounter().GetValue()
}

func readSummary(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()
	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatalf("summary observer is not a prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write: %v", err)
	}
	s := m.GetSummary()
	if s == nil {
		t.Fatalf("metric has no summary value")
	}
	return s.GetSampleCount(), s.GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		job     string
		url     string
		wantErr bool
		wantJob string
	}{
		{name: "missing url", job: "tally-ingest", url: "", wantErr: true},
		{name: "default job", job: "", url: "http://gw:9091", wantJob: "tally"},
		{name: "explicit job", job: "tally-retention", url: "http://gw:9091", wantJob: "tally-retention"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b, err := NewBackend(tc.job, tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend: %v", err)
			}
			if b.jobName != tc.wantJob || b.gatewayURL != tc.url {
				t.Fatalf("backend = job %q url %q", b.jobName, b.gatewayURL)
			}
		})
	}
}

func TestBackend_RoutesCountersAndSummaries(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("tally-ingest", "http://gw:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "load", "status": "success"})
	b.IncCounter(metrics.StepTotal, 2, metrics.Labels{"step": "load", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 40, metrics.Labels{"kind": "clean"})
	b.IncCounter(metrics.ChunksTotal, 3, nil)
	b.IncCounter("unknown_metric", 99, nil)
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "load", "status": "success"})
	b.ObserveHistogram(metrics.StepDuration, 0.75, metrics.Labels{"step": "load", "status": "success"})
	b.ObserveHistogram("unknown_histogram", 5, nil)

	if got := readCounter(t, b.stepCounter.WithLabelValues("load", "success")); got != 3 {
		t.Fatalf("step counter = %v, want 3", got)
	}
	if got := readCounter(t, b.recordCounter.WithLabelValues("clean")); got != 40 {
		t.Fatalf("record counter = %v, want 40", got)
	}
	if got := readCounter(t, b.chunkCounter); got != 3 {
		t.Fatalf("chunk counter = %v, want 3", got)
	}
	n, sum := readSummary(t, b.stepDuration, "load", "success")
	if n != 2 || sum != 1 {
		t.Fatalf("summary = count %d sum %v, want 2 and 1", n, sum)
	}
}

func TestFlush_PushesRegistryUnderJob(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("tally-retention", "http://gw:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	var gotURL, gotJob string
	var families int
	b.pusher = func(url, job string, g prometheus.Gatherer) error {
		gotURL, gotJob = url, job
		mf, err := g.Gather()
		families = len(mf)
		return err
	}
	b.IncCounter(metrics.ChunksTotal, 1, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if gotURL != "http://gw:9091" || gotJob != "tally-retention" {
		t.Fatalf("pushed to %q as %q", gotURL, gotJob)
	}
	if families == 0 {
		t.Fatalf("expected gathered families")
	}

	b.pusher = func(string, string, prometheus.Gatherer) error { return errors.New("down") }
	if err := b.Flush(); err == nil {
		t.Fatalf("expected push error")
	}
}
