// Package memory is an in-process ports.RecordStore used by tests, the
// default development profile and the CLI dry-run mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"token-ledger/internal/core/ports"
)

type recordKey struct {
	kind ports.RecordKind
	id   string
}

// Store implements ports.RecordStore with a mutex-guarded map.
type Store struct {
	mu      sync.RWMutex
	records map[recordKey]ports.Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[recordKey]ports.Record)}
}

// Get returns a copy of the record or ports.ErrRecordNotFound.
func (s *Store) Get(ctx context.Context, kind ports.RecordKind, id string) (*ports.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recordKey{kind, id}]
	if !ok {
		return nil, ports.ErrRecordNotFound
	}
	out := cloneRecord(rec)
	return &out, nil
}

// Put writes a single record. It returns the new version.
func (s *Store) Put(ctx context.Context, kind ports.RecordKind, id string, data []byte, expectedVersion int64) (int64, error) {
	if err := s.Commit(ctx, []ports.Mutation{{Kind: kind, ID: id, Data: data, ExpectedVersion: expectedVersion}}); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[recordKey{kind, id}].Version, nil
}

// List returns copies of every record of kind accepted by match, ordered by id.
func (s *Store) List(ctx context.Context, kind ports.RecordKind, match func(ports.Record) bool) ([]ports.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ports.Record
	for k, rec := range s.records {
		if k.kind != kind {
			continue
		}
		if match != nil && !match(rec) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Commit validates every expected version under the write lock, then applies
// all mutations. Nothing is written if any check fails.
func (s *Store) Commit(ctx context.Context, mutations []ports.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[recordKey]int64, len(mutations))
	for _, m := range mutations {
		k := recordKey{m.Kind, m.ID}
		current := s.records[k].Version
		if v, staged := next[k]; staged {
			current = v
		}
		if m.ExpectedVersion != ports.VersionAny && m.ExpectedVersion != current {
			return ports.ErrVersionConflict
		}
		next[k] = current + 1
	}

	for _, m := range mutations {
		k := recordKey{m.Kind, m.ID}
		data := make([]byte, len(m.Data))
		copy(data, m.Data)
		s.records[k] = ports.Record{
			Kind:    m.Kind,
			ID:      m.ID,
			Version: s.records[k].Version + 1,
			Data:    data,
		}
	}
	return nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "memory"
}

func cloneRecord(r ports.Record) ports.Record {
	data := make([]byte, len(r.Data))
	copy(data, r.Data)
	r.Data = data
	return r
}
