// Package datadog sends the job metrics to a DogStatsD agent
package datadog

import (
	"fmt"
	"sort"

	"tally/internal/platform/metrics"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Config holds the DogStatsD client settings
type Config struct {
	// Addr is "host:port" or "unix:///path/to/socket"
	Addr string
	// Namespace prefixes every metric name, e.g. "tally."
	Namespace  string
	GlobalTags []string
}

// client is the slice of statsd.ClientInterface the backend uses
type client interface {
	Count(name string, value int64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	Close() error
}

// Backend is a DogStatsD metrics.Backend
type Backend struct {
	client client
}

var newClient = func(addr string, opts ...statsd.Option) (client, error) {
	return statsd.New(addr, opts...)
}

// NewBackend dials the agent (UDP or UDS, so no connection is made until the first send)
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}
	var opts []statsd.Option
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}
	c, err := newClient(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter sends a Count; fractional deltas are truncated
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Count(name, int64(delta), labelsToTags(labels), 1)
}

// ObserveHistogram sends a Histogram sample
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Histogram(name, value, labelsToTags(labels), 1)
}

// Flush closes the client, which drains its buffer
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// labelsToTags renders labels as sorted "key:value" tags
func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
