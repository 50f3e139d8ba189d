// Package setup installs the metrics backend chosen by CORE_METRICS_BACKEND
package setup

import (
	"strings"

	perr "tally/internal/platform/errors"
	"tally/internal/platform/logger"
	"tally/internal/platform/metrics"
	"tally/internal/platform/metrics/datadog"
	"tally/internal/platform/metrics/prompush"
)

// Install builds the configured backend and installs it process-wide.
// The returned flush func is always non-nil and should be deferred by main;
// flush failures are logged, never fatal
func Install(cfg metrics.Config, job string) (func(), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(cfg.Backend) {
	case "", metrics.BackendNone:
		logger.Get().Debug().Str("job", job).Msg("metrics: disabled")
		return func() {}, nil

	case metrics.BackendPromPush:
		if cfg.PushgatewayURL == "" {
			return func() {}, perr.InvalidArgf("metrics: CORE_METRICS_PUSHGATEWAY_URL is required for prompush")
		}
		b, err = prompush.NewBackend(job, cfg.PushgatewayURL)

	case metrics.BackendDatadog:
		if cfg.DogstatsdAddr == "" {
			return func() {}, perr.InvalidArgf("metrics: CORE_METRICS_DOGSTATSD_ADDR is required for datadog")
		}
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.DogstatsdAddr,
			Namespace:  cfg.Namespace,
			GlobalTags: []string{"job:" + job},
		})

	default:
		return func() {}, perr.InvalidArgf("metrics: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return func() {}, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "metrics: init backend")
	}

	metrics.SetBackend(b)
	logger.Get().Info().Str("backend", cfg.Backend).Str("job", job).Msg("metrics: enabled")

	return func() {
		if err := metrics.Flush(); err != nil {
			logger.Get().Warn().Err(err).Str("backend", cfg.Backend).Msg("metrics: flush failed")
		}
	}, nil
}
