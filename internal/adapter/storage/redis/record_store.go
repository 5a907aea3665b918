package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"token-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

const (
	fieldVersion = "v"
	fieldData    = "d"
)

// RecordStore implements ports.RecordStore on Redis. Each record is a hash
// {v: version, d: data} under rec:<kind>:<id>, and idx:<kind> is the set of
// ids of that kind. Commit runs under WATCH on every touched key so a
// concurrent writer aborts the MULTI/EXEC and surfaces as a version conflict.
type RecordStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewRecordStore creates a new RecordStore. prefix namespaces all keys and
// may be empty.
func NewRecordStore(client goredis.UniversalClient, prefix string) *RecordStore {
	return &RecordStore{client: client, prefix: prefix}
}

func (s *RecordStore) recordKey(kind ports.RecordKind, id string) string {
	return fmt.Sprintf("%srec:%s:%s", s.prefix, kind, id)
}

func (s *RecordStore) indexKey(kind ports.RecordKind) string {
	return fmt.Sprintf("%sidx:%s", s.prefix, kind)
}

// Get fetches a single record.
func (s *RecordStore) Get(ctx context.Context, kind ports.RecordKind, id string) (*ports.Record, error) {
	vals, err := s.client.HMGet(ctx, s.recordKey(kind, id), fieldVersion, fieldData).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get record %s/%s: %w", kind, id, err)
	}
	rec, ok, err := decodeRecord(kind, id, vals)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ports.ErrRecordNotFound
	}
	return rec, nil
}

// Put writes one record and returns the new version.
func (s *RecordStore) Put(ctx context.Context, kind ports.RecordKind, id string, data []byte, expectedVersion int64) (int64, error) {
	versions, err := s.commit(ctx, []ports.Mutation{{Kind: kind, ID: id, Data: data, ExpectedVersion: expectedVersion}})
	if err != nil {
		return 0, err
	}
	return versions[0], nil
}

// List returns every record of kind accepted by match, ordered by id.
func (s *RecordStore) List(ctx context.Context, kind ports.RecordKind, match func(ports.Record) bool) ([]ports.Record, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list index %s: %w", kind, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	cmds := make([]*goredis.SliceCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HMGet(ctx, s.recordKey(kind, id), fieldVersion, fieldData)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list records %s: %w", kind, err)
	}

	var out []ports.Record
	for i, cmd := range cmds {
		rec, ok, err := decodeRecord(kind, ids[i], cmd.Val())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if match == nil || match(*rec) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// Commit applies all mutations in one MULTI/EXEC.
func (s *RecordStore) Commit(ctx context.Context, mutations []ports.Mutation) error {
	if len(mutations) == 0 {
		return nil
	}
	_, err := s.commit(ctx, mutations)
	return err
}

// Ping implements ports.HealthChecker.
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Name implements ports.HealthChecker.
func (s *RecordStore) Name() string {
	return "redis"
}

func (s *RecordStore) commit(ctx context.Context, mutations []ports.Mutation) ([]int64, error) {
	keys := make([]string, len(mutations))
	for i, m := range mutations {
		keys[i] = s.recordKey(m.Kind, m.ID)
	}

	versions := make([]int64, len(mutations))
	txf := func(tx *goredis.Tx) error {
		// Versions as seen at WATCH time, advanced as the batch stages writes.
		current := make(map[string]int64, len(keys))
		for _, key := range keys {
			if _, seen := current[key]; seen {
				continue
			}
			v, err := tx.HGet(ctx, key, fieldVersion).Int64()
			switch {
			case errors.Is(err, goredis.Nil):
				current[key] = 0
			case err != nil:
				return fmt.Errorf("redis read version %s: %w", key, err)
			default:
				current[key] = v
			}
		}

		for i, m := range mutations {
			cur := current[keys[i]]
			if !versionMatches(m.ExpectedVersion, cur) {
				return ports.ErrVersionConflict
			}
			versions[i] = cur + 1
			current[keys[i]] = cur + 1
		}

		_, err := tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			for i, m := range mutations {
				pipe.HSet(ctx, keys[i], fieldVersion, versions[i], fieldData, m.Data)
				pipe.SAdd(ctx, s.indexKey(m.Kind), m.ID)
			}
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, keys...)
	if err != nil {
		if errors.Is(err, goredis.TxFailedErr) {
			return nil, ports.ErrVersionConflict
		}
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("redis commit: %w", err)
	}
	return versions, nil
}

func versionMatches(expected, current int64) bool {
	switch expected {
	case ports.VersionAny:
		return true
	case ports.VersionAbsent:
		return current == 0
	default:
		return expected == current
	}
}

func decodeRecord(kind ports.RecordKind, id string, vals []interface{}) (*ports.Record, bool, error) {
	if len(vals) != 2 || vals[0] == nil {
		return nil, false, nil
	}
	vs, ok := vals[0].(string)
	if !ok {
		return nil, false, fmt.Errorf("redis record %s/%s: unexpected version type %T", kind, id, vals[0])
	}
	version, err := strconv.ParseInt(vs, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("redis record %s/%s: bad version: %w", kind, id, err)
	}
	data, _ := vals[1].(string)
	return &ports.Record{Kind: kind, ID: id, Version: version, Data: []byte(data)}, true, nil
}
