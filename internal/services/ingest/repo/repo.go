// Package repo provides Postgres bindings for domain.StorageRepo and the clickhouse mirror
package repo

import (
	"tally/internal/modkit/repokit"
	"tally/internal/services/ingest/domain"
)

type queries struct{ q repokit.Queryer }

// Compile-time assertion: queries implements domain.StorageRepo
var _ domain.StorageRepo = (*queries)(nil)

// NewPG returns a binder of StorageRepo to a Postgres transaction
func NewPG() repokit.Binder[domain.StorageRepo] {
	return repokit.BindFunc[domain.StorageRepo](func(q repokit.Queryer) domain.StorageRepo {
		return &queries{q: repokit.RequireQueryer(q)}
	})
}
