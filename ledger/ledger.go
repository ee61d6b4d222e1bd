// Package ledger is the authoritative holder of user balances, match
// occupancy and fund-request state. Every money or capacity mutation in the
// system goes through Transact — there is no bypass path.
//
// Transact reads the current version of every named record, runs the body,
// and commits all writes atomically only if no named record changed version
// since the read (optimistic concurrency). Conflicts are retried with
// backoff up to a bounded attempt budget; exhaustion surfaces as
// ErrTransient, which callers must treat as "try again", never as a
// business rejection.
package ledger

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"arena-ledger-system/models"
)

// Kind identifies a record family. Records of different kinds never share
// an id space.
type Kind string

const (
	KindUser    Kind = "user"
	KindMatch   Kind = "match"
	KindRequest Kind = "request"
)

// Key names one ledger record.
type Key struct {
	Kind Kind
	ID   string
}

func UserKey(id string) Key    { return Key{Kind: KindUser, ID: id} }
func MatchKey(id string) Key   { return Key{Kind: KindMatch, ID: id} }
func RequestKey(id string) Key { return Key{Kind: KindRequest, ID: id} }

// Record is any versioned ledger record.
type Record interface {
	RecordVersion() int64
}

var (
	// ErrConflict is a detected concurrent modification between read and
	// commit. It never escapes Transact.
	ErrConflict = errors.New("ledger: version conflict")

	// ErrTransient means the retry budget is exhausted. The operation was
	// not applied; the caller may retry the whole call.
	ErrTransient = errors.New("ledger: transaction retries exhausted")
)

// Retry policy, overridable at boot from configuration.
var (
	MaxAttempts  = 5
	RetryBackoff = 10 * time.Millisecond
)

// Store is the persistence contract. Any storage that can load versioned
// records and commit a compare-and-swap write set satisfies it; the service
// runs on the GORM/Postgres store and tests run on the in-memory one.
type Store interface {
	// Load snapshots the named records. Missing records are simply absent
	// from the transaction; Load itself is side-effect free.
	Load(ctx context.Context, keys []Key) (*Txn, error)

	// Commit applies the transaction's writes atomically, or returns
	// ErrConflict if any loaded record changed version since Load.
	Commit(ctx context.Context, txn *Txn) error
}

// Txn is one transaction attempt: the loaded snapshot plus the write set.
type Txn struct {
	records  map[Key]Record
	loadedAt map[Key]int64
	dirty    map[Key]bool
	inserts  []any
}

// NewTxn is used by Store implementations.
func NewTxn() *Txn {
	return &Txn{
		records:  make(map[Key]Record),
		loadedAt: make(map[Key]int64),
		dirty:    make(map[Key]bool),
	}
}

// Put registers a loaded record. Store implementations call this during Load.
func (t *Txn) Put(k Key, rec Record) {
	t.records[k] = rec
	t.loadedAt[k] = rec.RecordVersion()
}

// User returns the loaded user record, if present.
func (t *Txn) User(id string) (*models.PortalUser, bool) {
	rec, ok := t.records[UserKey(id)]
	if !ok {
		return nil, false
	}
	return rec.(*models.PortalUser), true
}

// Match returns the loaded match record, if present.
func (t *Txn) Match(id string) (*models.Match, bool) {
	rec, ok := t.records[MatchKey(id)]
	if !ok {
		return nil, false
	}
	return rec.(*models.Match), true
}

// Request returns the loaded fund-request record, if present.
func (t *Txn) Request(id string) (*models.FundRequest, bool) {
	rec, ok := t.records[RequestKey(id)]
	if !ok {
		return nil, false
	}
	return rec.(*models.FundRequest), true
}

// Update marks a loaded record as modified so Commit writes it back.
func (t *Txn) Update(k Key) { t.dirty[k] = true }

// Insert stages a brand-new row (fund request, match entry, event). Inserts
// commit atomically with the record updates.
func (t *Txn) Insert(v any) { t.inserts = append(t.inserts, v) }

// Append stages a ledger event describing this commit.
func (t *Txn) Append(ev *models.LedgerEvent) { t.Insert(ev) }

// HasWrites reports whether Commit would touch anything.
func (t *Txn) HasWrites() bool { return len(t.dirty) > 0 || len(t.inserts) > 0 }

// DirtyKeys returns the keys marked for write-back.
func (t *Txn) DirtyKeys() []Key {
	keys := make([]Key, 0, len(t.dirty))
	for k := range t.dirty {
		keys = append(keys, k)
	}
	return keys
}

// RecordAt returns a loaded record and the version captured at Load time.
func (t *Txn) RecordAt(k Key) (Record, int64) {
	return t.records[k], t.loadedAt[k]
}

// Inserts returns the staged new rows.
func (t *Txn) Inserts() []any { return t.inserts }

// Transact runs body against a snapshot of keys and commits its writes
// atomically, retrying on conflict. An error from body aborts the attempt
// with nothing applied and is returned as-is; a body that stages no writes
// commits nothing.
func Transact(ctx context.Context, store Store, keys []Key, body func(*Txn) error) error {
	backoff := RetryBackoff
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		txn, err := store.Load(ctx, keys)
		if err != nil {
			return err
		}

		if err := body(txn); err != nil {
			return err
		}
		if !txn.HasWrites() {
			return nil
		}

		err = store.Commit(ctx, txn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}

		// Jittered backoff before the next attempt.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + time.Duration(rand.Int63n(int64(backoff)))):
		}
		if backoff < time.Second {
			backoff *= 2
		}
	}
	return ErrTransient
}
