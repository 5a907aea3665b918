package postgres

import (
	"context"
	"errors"
	"fmt"

	"token-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	kind       TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	version    BIGINT      NOT NULL CHECK (version > 0),
	data       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
)`

const (
	selectRecordSQL = `SELECT version, data FROM records WHERE kind = $1 AND id = $2`

	listRecordsSQL = `SELECT id, version, data FROM records WHERE kind = $1 ORDER BY id`

	insertRecordSQL = `INSERT INTO records (kind, id, version, data, updated_at)
		VALUES ($1, $2, 1, $3, now())
		ON CONFLICT (kind, id) DO NOTHING
		RETURNING version`

	upsertRecordSQL = `INSERT INTO records (kind, id, version, data, updated_at)
		VALUES ($1, $2, 1, $3, now())
		ON CONFLICT (kind, id) DO UPDATE
		SET version = records.version + 1, data = EXCLUDED.data, updated_at = now()
		RETURNING version`

	updateRecordSQL = `UPDATE records
		SET version = version + 1, data = $3, updated_at = now()
		WHERE kind = $1 AND id = $2 AND version = $4
		RETURNING version`
)

// RecordStore implements ports.RecordStore on a single PostgreSQL table.
// Expected versions are enforced by the WHERE / ON CONFLICT clauses, so a
// Commit either applies every row change in one transaction or none.
type RecordStore struct {
	pool Pool
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(pool Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// EnsureSchema creates the records table if needed.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

// Get fetches a single record.
func (s *RecordStore) Get(ctx context.Context, kind ports.RecordKind, id string) (*ports.Record, error) {
	rec := &ports.Record{Kind: kind, ID: id}
	err := s.pool.QueryRow(ctx, selectRecordSQL, string(kind), id).Scan(&rec.Version, &rec.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get record %s/%s: %w", kind, id, err)
	}
	return rec, nil
}

// Put writes one record in its own transaction and returns the new version.
func (s *RecordStore) Put(ctx context.Context, kind ports.RecordKind, id string, data []byte, expectedVersion int64) (int64, error) {
	var version int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		version, err = applyMutation(ctx, tx, ports.Mutation{Kind: kind, ID: id, Data: data, ExpectedVersion: expectedVersion})
		return err
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// List returns every record of kind accepted by match, ordered by id.
func (s *RecordStore) List(ctx context.Context, kind ports.RecordKind, match func(ports.Record) bool) ([]ports.Record, error) {
	rows, err := s.pool.Query(ctx, listRecordsSQL, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list records %s: %w", kind, err)
	}
	defer rows.Close()

	var out []ports.Record
	for rows.Next() {
		rec := ports.Record{Kind: kind}
		if err := rows.Scan(&rec.ID, &rec.Version, &rec.Data); err != nil {
			return nil, fmt.Errorf("scan record %s: %w", kind, err)
		}
		if match == nil || match(rec) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records %s: %w", kind, err)
	}
	return out, nil
}

// Commit applies all mutations in one database transaction.
func (s *RecordStore) Commit(ctx context.Context, mutations []ports.Mutation) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, m := range mutations {
			if _, err := applyMutation(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// Ping implements ports.HealthChecker.
func (s *RecordStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return err
}

// Name implements ports.HealthChecker.
func (s *RecordStore) Name() string {
	return "postgresql"
}

func (s *RecordStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func applyMutation(ctx context.Context, tx pgx.Tx, m ports.Mutation) (int64, error) {
	var row pgx.Row
	switch m.ExpectedVersion {
	case ports.VersionAbsent:
		row = tx.QueryRow(ctx, insertRecordSQL, string(m.Kind), m.ID, m.Data)
	case ports.VersionAny:
		row = tx.QueryRow(ctx, upsertRecordSQL, string(m.Kind), m.ID, m.Data)
	default:
		row = tx.QueryRow(ctx, updateRecordSQL, string(m.Kind), m.ID, m.Data, m.ExpectedVersion)
	}

	var version int64
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ports.ErrVersionConflict
		}
		return 0, fmt.Errorf("write record %s/%s: %w", m.Kind, m.ID, err)
	}
	return version, nil
}
