package ports

//go:generate mockgen -source=recordstore.go -destination=mocks/mock_recordstore.go -package=mocks

import (
	"context"
	"errors"
)

// RecordKind namespaces record ids inside the store.
type RecordKind string

const (
	KindAccount      RecordKind = "account"
	KindEmailIndex   RecordKind = "account_email"
	KindTransaction  RecordKind = "transaction"
	KindExchange     RecordKind = "exchange_request"
	KindAlert        RecordKind = "alert"
	KindPaymentEvent RecordKind = "payment_event"
)

// Version sentinels for Mutation.ExpectedVersion.
const (
	// VersionAbsent requires the record not to exist yet (create).
	VersionAbsent int64 = 0
	// VersionAny writes unconditionally.
	VersionAny int64 = -1
)

var (
	// ErrRecordNotFound is returned by Get for unknown kind/id pairs.
	ErrRecordNotFound = errors.New("record not found")
	// ErrVersionConflict is returned by Put/Commit when an expected version
	// does not match the stored one. Callers retry the whole operation.
	ErrVersionConflict = errors.New("record version conflict")
)

// Record is one versioned entry of the store. Data is an opaque JSON document.
// Versions start at 1 and grow by one on every successful write.
type Record struct {
	Kind    RecordKind
	ID      string
	Version int64
	Data    []byte
}

// Mutation is a single conditional write inside Commit.
type Mutation struct {
	Kind            RecordKind
	ID              string
	Data            []byte
	ExpectedVersion int64
}

// RecordStore is the durable backend of the ledger engine. Implementations
// must apply Commit atomically: either every mutation becomes visible or none
// does, and a single mismatched ExpectedVersion rejects the whole batch with
// ErrVersionConflict.
type RecordStore interface {
	Get(ctx context.Context, kind RecordKind, id string) (*Record, error)
	Put(ctx context.Context, kind RecordKind, id string, data []byte, expectedVersion int64) (int64, error)
	List(ctx context.Context, kind RecordKind, match func(Record) bool) ([]Record, error)
	Commit(ctx context.Context, mutations []Mutation) error
}
