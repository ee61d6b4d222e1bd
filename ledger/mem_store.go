package ledger

import (
	"context"
	"sync"

	"arena-ledger-system/models"
)

// MemStore is an in-memory Store with the same compare-and-swap semantics
// as the relational store. It backs the test suite and doubles as the
// reference implementation of the storage contract: Load hands out deep
// copies, Commit succeeds only if every loaded record still carries the
// version captured at Load time.
type MemStore struct {
	mu      sync.Mutex
	records map[Key]Record
	entries []*models.MatchEntry
	events  []*models.LedgerEvent
	nextSeq int64
	commits int64
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[Key]Record)}
}

// Seed installs a record outside any transaction. Test fixtures only.
func (s *MemStore) Seed(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := keyFor(rec); ok {
		s.records[k] = cloneRecord(rec)
	}
}

func (s *MemStore) Load(ctx context.Context, keys []Key) (*Txn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn := NewTxn()
	for _, k := range keys {
		if rec, ok := s.records[k]; ok {
			txn.Put(k, cloneRecord(rec))
		}
	}
	return txn, nil
}

func (s *MemStore) Commit(ctx context.Context, txn *Txn) error {
	if !txn.HasWrites() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every write first; a conflicting commit applies nothing.
	for _, k := range txn.DirtyKeys() {
		master, ok := s.records[k]
		_, loadedVersion := txn.RecordAt(k)
		if !ok || master.RecordVersion() != loadedVersion {
			return ErrConflict
		}
	}
	for _, ins := range txn.Inserts() {
		if k, ok := keyFor(ins); ok {
			if _, exists := s.records[k]; exists {
				return ErrConflict
			}
		}
	}

	for _, k := range txn.DirtyKeys() {
		rec, loadedVersion := txn.RecordAt(k)
		bumpVersion(rec, loadedVersion+1)
		s.records[k] = cloneRecord(rec)
	}
	for _, ins := range txn.Inserts() {
		switch v := ins.(type) {
		case *models.MatchEntry:
			s.entries = append(s.entries, v)
		case *models.LedgerEvent:
			s.nextSeq++
			v.Seq = s.nextSeq
			s.events = append(s.events, v)
		default:
			if k, ok := keyFor(ins); ok {
				s.records[k] = cloneRecord(ins.(Record))
			}
		}
	}

	s.commits++
	return nil
}

// User returns a copy of the stored user record, for assertions.
func (s *MemStore) User(id string) (*models.PortalUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[UserKey(id)]
	if !ok {
		return nil, false
	}
	return cloneRecord(rec).(*models.PortalUser), true
}

// Match returns a copy of the stored match record, for assertions.
func (s *MemStore) Match(id string) (*models.Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[MatchKey(id)]
	if !ok {
		return nil, false
	}
	return cloneRecord(rec).(*models.Match), true
}

// Request returns a copy of the stored fund request, for assertions.
func (s *MemStore) Request(id string) (*models.FundRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[RequestKey(id)]
	if !ok {
		return nil, false
	}
	return cloneRecord(rec).(*models.FundRequest), true
}

// Entries returns the committed match-entry rows.
func (s *MemStore) Entries() []*models.MatchEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.MatchEntry(nil), s.entries...)
}

// Events returns the committed ledger events in sequence order.
func (s *MemStore) Events() []*models.LedgerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.LedgerEvent(nil), s.events...)
}

// Commits counts successful commits, letting tests assert that an operation
// issued no (or exactly one) ledger transaction.
func (s *MemStore) Commits() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

func keyFor(v any) (Key, bool) {
	switch r := v.(type) {
	case *models.PortalUser:
		return UserKey(r.ID), true
	case *models.Match:
		return MatchKey(r.ID), true
	case *models.FundRequest:
		return RequestKey(r.ID), true
	}
	return Key{}, false
}

func cloneRecord(rec Record) Record {
	switch r := rec.(type) {
	case *models.PortalUser:
		cp := *r
		cp.JoinedTournaments = append([]string(nil), r.JoinedTournaments...)
		cp.JoinedFreeMatches = append([]string(nil), r.JoinedFreeMatches...)
		return &cp
	case *models.Match:
		cp := *r
		return &cp
	case *models.FundRequest:
		cp := *r
		return &cp
	}
	return rec
}
