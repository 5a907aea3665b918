package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type recordRef struct {
	kind ports.RecordKind
	id   string
}

// unitOfWork collects the versions of every record read during one operation
// and the writes it wants to make. Nothing reaches the store until commit,
// which submits all staged mutations in a single RecordStore.Commit.
type unitOfWork struct {
	store    ports.RecordStore
	versions map[recordRef]int64
	staged   []ports.Mutation
	index    map[recordRef]int
}

func newUnitOfWork(store ports.RecordStore) *unitOfWork {
	return &unitOfWork{
		store:    store,
		versions: make(map[recordRef]int64),
		index:    make(map[recordRef]int),
	}
}

// load reads kind/id into dst and remembers its version.
func (u *unitOfWork) load(ctx context.Context, kind ports.RecordKind, id string, dst any) error {
	rec, err := u.store.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	return u.track(*rec, dst)
}

// track decodes a record obtained from List and remembers its version, so a
// later update is checked against exactly what the caller saw.
func (u *unitOfWork) track(rec ports.Record, dst any) error {
	if err := json.Unmarshal(rec.Data, dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", rec.Kind, rec.ID, err)
	}
	u.versions[recordRef{rec.Kind, rec.ID}] = rec.Version
	return nil
}

// update stages a conditional write of a previously loaded record.
func (u *unitOfWork) update(kind ports.RecordKind, id string, v any) error {
	ref := recordRef{kind, id}
	version, ok := u.versions[ref]
	if !ok {
		return fmt.Errorf("update %s/%s: record was not loaded in this unit of work", kind, id)
	}
	return u.stage(ref, v, version)
}

// create stages a write that only succeeds if kind/id does not exist yet.
func (u *unitOfWork) create(kind ports.RecordKind, id string, v any) error {
	return u.stage(recordRef{kind, id}, v, ports.VersionAbsent)
}

func (u *unitOfWork) stage(ref recordRef, v any, expected int64) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", ref.kind, ref.id, err)
	}
	m := ports.Mutation{Kind: ref.kind, ID: ref.id, Data: data, ExpectedVersion: expected}
	if i, ok := u.index[ref]; ok {
		u.staged[i] = m
		return nil
	}
	u.index[ref] = len(u.staged)
	u.staged = append(u.staged, m)
	return nil
}

func (u *unitOfWork) commit(ctx context.Context) error {
	if len(u.staged) == 0 {
		return nil
	}
	return u.store.Commit(ctx, u.staged)
}

// ---- typed helpers ----

func (u *unitOfWork) loadAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var acc domain.Account
	if err := u.load(ctx, ports.KindAccount, id.String(), &acc); err != nil {
		return nil, notFoundAs(err, "Account")
	}
	return &acc, nil
}

func (u *unitOfWork) saveAccount(acc *domain.Account, at time.Time) error {
	acc.UpdatedAt = at
	return u.update(ports.KindAccount, acc.ID.String(), acc)
}

func (u *unitOfWork) loadExchange(ctx context.Context, id uuid.UUID) (*domain.ExchangeRequest, error) {
	var req domain.ExchangeRequest
	if err := u.load(ctx, ports.KindExchange, id.String(), &req); err != nil {
		return nil, notFoundAs(err, "Exchange request")
	}
	return &req, nil
}

// whereDecoded adapts a typed filter to a RecordStore.List predicate. A
// record that does not decode is kept so the caller reports the error.
func whereDecoded[T any](keep func(v *T) bool) func(ports.Record) bool {
	return func(rec ports.Record) bool {
		var v T
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			return true
		}
		return keep(&v)
	}
}

// notFoundAs turns a missing record into the entity's NotFound error.
func notFoundAs(err error, entity string) error {
	if errors.Is(err, ports.ErrRecordNotFound) {
		return apperror.ErrNotFound(entity)
	}
	return err
}

func (u *unitOfWork) appendEntry(e *domain.TransactionEntry) error {
	return u.create(ports.KindTransaction, e.ID.String(), e)
}

func (u *unitOfWork) appendAlert(a *domain.Alert) error {
	return u.create(ports.KindAlert, a.ID.String(), a)
}

// ---- runner ----

// storeRunner executes operations as units of work with a bounded number of
// attempts and a per-operation deadline.
type storeRunner struct {
	store       ports.RecordStore
	maxAttempts int
	timeout     time.Duration
	log         zerolog.Logger
}

func newStoreRunner(store ports.RecordStore, maxAttempts int, timeout time.Duration, log zerolog.Logger) *storeRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &storeRunner{store: store, maxAttempts: maxAttempts, timeout: timeout, log: log}
}

// run calls fn with a fresh unit of work and commits what it staged. On
// ports.ErrVersionConflict the whole operation is replayed. AppErrors returned
// by fn pass through unchanged; any other failure becomes StoreUnavailable.
func (r *storeRunner) run(ctx context.Context, op string, fn func(ctx context.Context, uow *unitOfWork) error) error {
	ctx, cancel := withStoreTimeout(ctx, r.timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		uow := newUnitOfWork(r.store)
		err := fn(ctx, uow)
		if err == nil {
			err = uow.commit(ctx)
		}
		if err == nil {
			return nil
		}

		if errors.Is(err, ports.ErrVersionConflict) {
			if attempt < r.maxAttempts {
				r.log.Debug().Str("op", op).Int("attempt", attempt).Msg("version conflict, retrying")
				continue
			}
			r.log.Warn().Str("op", op).Int("attempts", attempt).Msg("version conflict retries exhausted")
			return apperror.ErrStoreUnavailable(fmt.Errorf("%s: %w", op, err))
		}
		return storeError(op, err)
	}
}

// withStoreTimeout bounds a store call. A zero timeout means no deadline.
func withStoreTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func storeError(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, ports.ErrRecordNotFound) {
		return apperror.ErrNotFound("Record")
	}
	return apperror.ErrStoreUnavailable(fmt.Errorf("%s: %w", op, err))
}
