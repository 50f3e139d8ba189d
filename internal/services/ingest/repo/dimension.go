package repo

import (
	"context"
	"fmt"

	perr "tally/internal/platform/errors"
	"tally/internal/platform/store"
	"tally/internal/services/ingest/domain"
)

// MappingSQL reads every natural key of dim with its surrogate id
func MappingSQL(dim domain.Dimension) string {
	return fmt.Sprintf(`SELECT %s, id FROM %s`, dim.KeyColumn, dim.Table)
}

// InsertKeysSQL adds the keys of $1 that are not present yet and returns the created ids
func InsertKeysSQL(dim domain.Dimension) string {
	return fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s)
		SELECT k FROM unnest($1::%[3]s[]) AS t(k)
		ON CONFLICT (%[2]s) DO NOTHING
		RETURNING id`, dim.Table, dim.KeyColumn, dim.KeyType)
}

// Mapping returns natural key -> id for the whole table
func (r *queries) Mapping(ctx context.Context, dim domain.Dimension) (map[any]int64, error) {
	if err := dim.Validate(); err != nil {
		return nil, err
	}
	out := make(map[any]int64)
	switch dim.KeyType {
	case domain.KeyBigint:
		m, err := store.Pairs[int64, int64](ctx, r.q, MappingSQL(dim))
		if err != nil {
			return nil, perr.FromPostgresf(err, "ingest: read %s", dim.Table)
		}
		for k, id := range m {
			out[k] = id
		}
	case domain.KeyText:
		m, err := store.Pairs[string, int64](ctx, r.q, MappingSQL(dim))
		if err != nil {
			return nil, perr.FromPostgresf(err, "ingest: read %s", dim.Table)
		}
		for k, id := range m {
			out[k] = id
		}
	}
	return out, nil
}

// InsertKeys bulk inserts keys in one statement. Keys another writer added first are
// skipped by the conflict clause, so the result may be shorter than keys
func (r *queries) InsertKeys(ctx context.Context, dim domain.Dimension, keys []any) ([]int64, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if err := dim.Validate(); err != nil {
		return nil, err
	}
	arr, err := dim.CastKeys(keys)
	if err != nil {
		return nil, err
	}
	ids, err := store.Column[int64](ctx, r.q, InsertKeysSQL(dim), arr)
	if err != nil {
		return nil, perr.FromPostgresWithField(err, fmt.Sprintf("ingest: insert into %s", dim.Table))
	}
	return ids, nil
}
