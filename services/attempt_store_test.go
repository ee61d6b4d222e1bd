package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryAttemptStoreRoundTrip(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	ctx := context.Background()

	attempt := &Attempt{ID: "a1", UserID: "u1", Variant: AdEarnVideo, AdsRequired: 1, State: AttemptWaiting}
	if err := store.Create(ctx, attempt); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got.AdsWatched = 99 // returned copies must not alias the stored attempt

	again, _ := store.Get(ctx, "u1", "a1")
	if again.AdsWatched != 0 {
		t.Errorf("stored attempt mutated through a returned copy")
	}

	// Attempts are scoped to their owner.
	if _, err := store.Get(ctx, "someone-else", "a1"); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("cross-user get err = %v, want ErrAttemptNotFound", err)
	}
}

func TestMemoryAttemptStoreAdvanceMutationError(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	ctx := context.Background()
	store.Create(ctx, &Attempt{ID: "a1", UserID: "u1", State: AttemptWaiting})

	boom := errors.New("rejected")
	if _, err := store.Advance(ctx, "u1", "a1", func(a *Attempt) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want mutate error", err)
	}
}

func TestMemoryAttemptStoreExpiry(t *testing.T) {
	store := NewMemoryAttemptStore(10 * time.Millisecond)
	ctx := context.Background()
	store.Create(ctx, &Attempt{ID: "a1", UserID: "u1", State: AttemptWaiting})

	time.Sleep(30 * time.Millisecond)

	if _, err := store.Get(ctx, "u1", "a1"); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("expired get err = %v, want ErrAttemptNotFound", err)
	}
}

func TestMemoryAttemptStoreAdvanceSerialized(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	ctx := context.Background()
	store.Create(ctx, &Attempt{ID: "a1", UserID: "u1", AdsRequired: 1000, State: AttemptWaiting})

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Advance(ctx, "u1", "a1", func(a *Attempt) error {
				a.AdsWatched++
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := store.Get(ctx, "u1", "a1")
	if got.AdsWatched != workers {
		t.Errorf("ads watched = %d, want %d (no lost increments)", got.AdsWatched, workers)
	}
}
