package services

import (
	"context"
	"sync"
	"time"
)

// AttemptState tracks one reward-gate run. waiting accepts confirmations;
// crediting means the terminal ledger effect is in flight (re-entry is
// rejected); credited and cancelled are terminal.
type AttemptState string

const (
	AttemptWaiting   AttemptState = "waiting"
	AttemptCrediting AttemptState = "crediting"
	AttemptCredited  AttemptState = "credited"
	AttemptCancelled AttemptState = "cancelled"
)

// AdVariant identifies what a completed attempt pays out.
type AdVariant string

const (
	AdJoinMatch       AdVariant = "join-match"
	AdEarnVideo       AdVariant = "earn-video"
	AdEarnInteractive AdVariant = "earn-interactive"
	AdEarnSurvey      AdVariant = "earn-survey"
)

// Attempt is one run of the sequential ad-confirmation flow, keyed by
// (UserID, ID) and owned by the server so progress survives client
// reconnects. Step progress is never written to the ledger — only the
// terminal effect is.
type Attempt struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Variant AdVariant `json:"variant"`
	MatchID string    `json:"match_id,omitempty"`

	AdsRequired int   `json:"ads_required"`
	AdsWatched  int   `json:"ads_watched"`
	Reward      int64 `json:"reward"`

	State     AttemptState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
}

// Terminal reports whether no further confirmations are possible.
func (a *Attempt) Terminal() bool {
	return a.State == AttemptCredited || a.State == AttemptCancelled
}

// AttemptStore holds live attempts. Advance must apply mutate atomically
// with respect to concurrent calls for the same attempt — that exclusion is
// what makes duplicate completion signals harmless.
type AttemptStore interface {
	Create(ctx context.Context, a *Attempt) error
	Get(ctx context.Context, userID, attemptID string) (*Attempt, error)
	Advance(ctx context.Context, userID, attemptID string, mutate func(*Attempt) error) (*Attempt, error)
	Delete(ctx context.Context, userID, attemptID string) error
}

// MemoryAttemptStore keeps attempts in process memory with a TTL. Suitable
// for a single instance; multi-instance deployments use the Redis store.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	attempts map[string]*memAttempt
}

type memAttempt struct {
	attempt   Attempt
	expiresAt time.Time
}

func NewMemoryAttemptStore(ttl time.Duration) *MemoryAttemptStore {
	return &MemoryAttemptStore{ttl: ttl, attempts: make(map[string]*memAttempt)}
}

func attemptKey(userID, attemptID string) string { return userID + "/" + attemptID }

func (s *MemoryAttemptStore) Create(ctx context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.attempts[attemptKey(a.UserID, a.ID)] = &memAttempt{attempt: cp, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryAttemptStore) Get(ctx context.Context, userID, attemptID string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.lookup(userID, attemptID)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	cp := stored.attempt
	return &cp, nil
}

func (s *MemoryAttemptStore) Advance(ctx context.Context, userID, attemptID string, mutate func(*Attempt) error) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.lookup(userID, attemptID)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if err := mutate(&stored.attempt); err != nil {
		return nil, err
	}
	cp := stored.attempt
	return &cp, nil
}

func (s *MemoryAttemptStore) Delete(ctx context.Context, userID, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, attemptKey(userID, attemptID))
	return nil
}

// lookup expires stale attempts lazily. Caller holds the lock.
func (s *MemoryAttemptStore) lookup(userID, attemptID string) (*memAttempt, bool) {
	key := attemptKey(userID, attemptID)
	stored, ok := s.attempts[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(stored.expiresAt) {
		delete(s.attempts, key)
		return nil, false
	}
	return stored, true
}
