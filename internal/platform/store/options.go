package store

import (
	"tally/internal/platform/logger"
)

// Option mutates Store during Open
type Option func(*Store) error

// WithLogger sets the logger used by subclients
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// WithPG installs a ready TxRunner so Open skips dialing postgres (tests, shared pools)
func WithPG(tx TxRunner) Option {
	return func(s *Store) error {
		s.PG = tx
		return nil
	}
}

// WithCH installs a ready clickhouse seam so Open skips dialing it
func WithCH(c Clickhouse) Option {
	return func(s *Store) error {
		s.CH = c
		return nil
	}
}
