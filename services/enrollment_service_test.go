package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"arena-ledger-system/ledger"
	"arena-ledger-system/models"
)

func fastLedgerRetries(t *testing.T) {
	t.Helper()
	oldBackoff, oldMax := ledger.RetryBackoff, ledger.MaxAttempts
	ledger.RetryBackoff = time.Millisecond
	ledger.MaxAttempts = 50
	t.Cleanup(func() {
		ledger.RetryBackoff = oldBackoff
		ledger.MaxAttempts = oldMax
	})
}

func seedTournament(store *ledger.MemStore, id string, fee int64, maxPlayers int) {
	store.Seed(&models.Match{
		ID:         id,
		Name:       "Test Cup",
		Kind:       models.MatchKindTournament,
		EntryFee:   fee,
		MaxPlayers: maxPlayers,
		Status:     models.MatchStatusUpcoming,
		StartTime:  time.Now().Add(time.Hour),
	})
}

func TestJoinMatchDeductsFeeAndFillsSlot(t *testing.T) {
	store := ledger.NewMemStore()
	store.Seed(&models.PortalUser{ID: "u1", WalletBalance: 500})
	seedTournament(store, "m1", 100, 10)
	svc := NewEnrollmentService(store, nil)

	if err := svc.JoinAtListedFee(context.Background(), "u1", "m1"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	user, _ := store.User("u1")
	if user.WalletBalance != 400 {
		t.Errorf("wallet = %d, want 400", user.WalletBalance)
	}
	if user.TotalMatches != 1 {
		t.Errorf("total matches = %d, want 1", user.TotalMatches)
	}
	if !user.HasJoined(models.MatchKindTournament, "m1") {
		t.Error("joined set missing m1")
	}

	match, _ := store.Match("m1")
	if match.JoinedPlayers != 1 {
		t.Errorf("joined players = %d, want 1", match.JoinedPlayers)
	}

	entries := store.Entries()
	if len(entries) != 1 || entries[0].MatchID != "m1" || entries[0].FeePaid != 100 {
		t.Errorf("unexpected entries: %+v", entries)
	}

	events := store.Events()
	if len(events) != 1 || events[0].Type != models.EventMatchJoined || events[0].Amount != 100 {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestJoinMatchZeroFeeSkipsBalanceCheck(t *testing.T) {
	store := ledger.NewMemStore()
	store.Seed(&models.PortalUser{ID: "u1", WalletBalance: 0})
	store.Seed(&models.Match{
		ID:         "f1",
		Kind:       models.MatchKindFree,
		MaxPlayers: 10,
		Status:     models.MatchStatusUpcoming,
	})
	svc := NewEnrollmentService(store, nil)

	if err := svc.JoinMatch(context.Background(), "u1", "f1", 0); err != nil {
		t.Fatalf("zero-fee join failed: %v", err)
	}

	user, _ := store.User("u1")
	if user.WalletBalance != 0 {
		t.Errorf("wallet = %d, want 0", user.WalletBalance)
	}
	if !user.HasJoined(models.MatchKindFree, "f1") {
		t.Error("joined set missing f1")
	}
}

func TestJoinMatchRejections(t *testing.T) {
	store := ledger.NewMemStore()
	store.Seed(&models.PortalUser{ID: "rich", WalletBalance: 1000, JoinedTournaments: []string{"m1"}})
	store.Seed(&models.PortalUser{ID: "poor", WalletBalance: 10})
	seedTournament(store, "m1", 100, 10)
	store.Seed(&models.Match{ID: "live", Kind: models.MatchKindTournament, MaxPlayers: 10, Status: models.MatchStatusLive})
	svc := NewEnrollmentService(store, nil)
	ctx := context.Background()

	cases := []struct {
		name    string
		userID  string
		matchID string
		want    error
	}{
		{"unknown match", "rich", "ghost", ErrMatchNotFound},
		{"unknown user", "ghost", "m1", ErrUserNotFound},
		{"already joined", "rich", "m1", ErrAlreadyJoined},
		{"insufficient balance", "poor", "m1", ErrInsufficientBalance},
		{"match not joinable", "rich", "live", ErrMatchClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.JoinAtListedFee(ctx, tc.userID, tc.matchID); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if store.Commits() != 0 {
		t.Errorf("commits = %d, rejections must not touch the ledger", store.Commits())
	}
	match, _ := store.Match("m1")
	if match.JoinedPlayers != 0 {
		t.Errorf("joined players = %d after rejections, want 0", match.JoinedPlayers)
	}
}

func TestConcurrentJoinsNeverOversubscribe(t *testing.T) {
	fastLedgerRetries(t)

	const capacity = 3
	const contenders = 8

	store := ledger.NewMemStore()
	seedTournament(store, "m1", 100, capacity)
	for i := 0; i < contenders; i++ {
		store.Seed(&models.PortalUser{ID: fmt.Sprintf("u%d", i), WalletBalance: 500})
	}
	svc := NewEnrollmentService(store, nil)

	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			results <- svc.JoinAtListedFee(context.Background(), id, "m1")
		}(fmt.Sprintf("u%d", i))
	}
	wg.Wait()
	close(results)

	var joined, full int
	for err := range results {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, ErrMatchFull):
			full++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if joined != capacity {
		t.Errorf("joined = %d, want exactly %d", joined, capacity)
	}
	if full != contenders-capacity {
		t.Errorf("rejected = %d, want %d", full, contenders-capacity)
	}

	match, _ := store.Match("m1")
	if match.JoinedPlayers != capacity {
		t.Errorf("joined players = %d, want %d", match.JoinedPlayers, capacity)
	}
	if len(store.Entries()) != capacity {
		t.Errorf("entry rows = %d, want %d", len(store.Entries()), capacity)
	}
}

func TestConcurrentDuplicateJoinSingleCharge(t *testing.T) {
	fastLedgerRetries(t)

	store := ledger.NewMemStore()
	store.Seed(&models.PortalUser{ID: "u1", WalletBalance: 500})
	seedTournament(store, "m1", 100, 10)
	svc := NewEnrollmentService(store, nil)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.JoinAtListedFee(context.Background(), "u1", "m1")
		}()
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyJoined):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 1 {
		t.Fatalf("ok=%d dup=%d, want exactly one of each", ok, dup)
	}

	user, _ := store.User("u1")
	if user.WalletBalance != 400 {
		t.Errorf("wallet = %d, want 400 (charged once)", user.WalletBalance)
	}
	match, _ := store.Match("m1")
	if match.JoinedPlayers != 1 {
		t.Errorf("joined players = %d, want 1", match.JoinedPlayers)
	}
}
