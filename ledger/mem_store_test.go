package ledger

import (
	"context"
	"errors"
	"testing"

	"arena-ledger-system/models"
)

func TestMemStoreLoadReturnsCopies(t *testing.T) {
	store := NewMemStore()
	store.Seed(&models.PortalUser{ID: "u1", WalletBalance: 100, JoinedFreeMatches: []string{"m1"}})

	txn, err := store.Load(context.Background(), []Key{UserKey("u1")})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	user, _ := txn.User("u1")
	user.WalletBalance = 0
	user.JoinedFreeMatches[0] = "mutated"

	stored, _ := store.User("u1")
	if stored.WalletBalance != 100 {
		t.Errorf("wallet = %d, store must be isolated from snapshot edits", stored.WalletBalance)
	}
	if stored.JoinedFreeMatches[0] != "m1" {
		t.Errorf("joined set leaked through the snapshot copy")
	}
}

func TestMemStoreMissingKeyAbsentFromSnapshot(t *testing.T) {
	store := NewMemStore()

	txn, err := store.Load(context.Background(), []Key{UserKey("ghost")})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := txn.User("ghost"); ok {
		t.Error("missing record must be absent, not zero-valued")
	}
}

func TestMemStoreStaleCommitRejected(t *testing.T) {
	store := NewMemStore()
	store.Seed(&models.PortalUser{ID: "u1", WalletBalance: 100})
	ctx := context.Background()

	first, _ := store.Load(ctx, []Key{UserKey("u1")})
	second, _ := store.Load(ctx, []Key{UserKey("u1")})

	u1, _ := first.User("u1")
	u1.WalletBalance = 60
	first.Update(UserKey("u1"))
	if err := store.Commit(ctx, first); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}

	u2, _ := second.User("u1")
	u2.WalletBalance = 0
	second.Update(UserKey("u1"))
	if err := store.Commit(ctx, second); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale commit err = %v, want ErrConflict", err)
	}

	stored, _ := store.User("u1")
	if stored.WalletBalance != 60 {
		t.Errorf("wallet = %d, want 60 (stale write discarded)", stored.WalletBalance)
	}
	if stored.Version != 1 {
		t.Errorf("version = %d, want 1", stored.Version)
	}
}

func TestMemStoreConflictAppliesNothing(t *testing.T) {
	store := NewMemStore()
	store.Seed(&models.PortalUser{ID: "u1", WalletBalance: 100})
	store.Seed(&models.Match{ID: "m1", MaxPlayers: 10})
	ctx := context.Background()

	keys := []Key{UserKey("u1"), MatchKey("m1")}
	stale, _ := store.Load(ctx, keys)

	// Another writer bumps the match in between.
	other, _ := store.Load(ctx, []Key{MatchKey("m1")})
	m, _ := other.Match("m1")
	m.JoinedPlayers = 1
	other.Update(MatchKey("m1"))
	if err := store.Commit(ctx, other); err != nil {
		t.Fatalf("interleaved commit failed: %v", err)
	}

	su, _ := stale.User("u1")
	su.WalletBalance = 0
	sm, _ := stale.Match("m1")
	sm.JoinedPlayers = 99
	stale.Update(UserKey("u1"))
	stale.Update(MatchKey("m1"))
	stale.Append(&models.LedgerEvent{Type: models.EventMatchJoined, UserID: "u1"})

	if err := store.Commit(ctx, stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	user, _ := store.User("u1")
	if user.WalletBalance != 100 {
		t.Errorf("user partially written on conflict: wallet = %d", user.WalletBalance)
	}
	match, _ := store.Match("m1")
	if match.JoinedPlayers != 1 {
		t.Errorf("match partially written on conflict: joined = %d", match.JoinedPlayers)
	}
	if len(store.Events()) != 0 {
		t.Errorf("events written on conflicted commit: %d", len(store.Events()))
	}
}

func TestMemStoreDuplicateKeyedInsertConflicts(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	first, _ := store.Load(ctx, nil)
	first.Insert(&models.FundRequest{ID: "r1", UserID: "u1", Amount: 100})
	if err := store.Commit(ctx, first); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	second, _ := store.Load(ctx, nil)
	second.Insert(&models.FundRequest{ID: "r1", UserID: "u1", Amount: 200})
	if err := store.Commit(ctx, second); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate insert err = %v, want ErrConflict", err)
	}

	stored, _ := store.Request("r1")
	if stored.Amount != 100 {
		t.Errorf("amount = %d, original row must survive", stored.Amount)
	}
}

func TestMemStoreEventsGetSequentialSeq(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		txn, _ := store.Load(ctx, nil)
		txn.Append(&models.LedgerEvent{Type: models.EventBalanceAdjusted, UserID: "u1"})
		if err := store.Commit(ctx, txn); err != nil {
			t.Fatalf("commit %d failed: %v", i, err)
		}
	}

	events := store.Events()
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	for i, ev := range events {
		if ev.Seq != int64(i+1) {
			t.Errorf("event %d seq = %d, want %d", i, ev.Seq, i+1)
		}
	}
}
