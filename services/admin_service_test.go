package services

import (
	"context"
	"errors"
	"testing"

	"arena-ledger-system/ledger"
	"arena-ledger-system/models"
)

func TestAdjustBalancesAppliesBothDeltas(t *testing.T) {
	store := ledger.NewMemStore()
	store.Seed(&models.PortalUser{ID: "u1", WalletBalance: 100, WinningsBalance: 50})
	svc := NewAdminService(store, nil)

	user, err := svc.AdjustBalances(context.Background(), "u1", -30, 500, "admin1", "prize for match m9")
	if err != nil {
		t.Fatalf("AdjustBalances failed: %v", err)
	}
	if user.WalletBalance != 70 || user.WinningsBalance != 550 {
		t.Errorf("balances = %d/%d, want 70/550", user.WalletBalance, user.WinningsBalance)
	}

	events := store.Events()
	if len(events) != 1 || events[0].Type != models.EventBalanceAdjusted {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[0].RecordID != "admin1" || events[0].Payload != "prize for match m9" {
		t.Errorf("event must carry actor and reason: %+v", events[0])
	}
}

func TestAdjustBalancesRejectsNegativeResult(t *testing.T) {
	store := ledger.NewMemStore()
	store.Seed(&models.PortalUser{ID: "u1", WalletBalance: 100, WinningsBalance: 50})
	svc := NewAdminService(store, nil)
	ctx := context.Background()

	if _, err := svc.AdjustBalances(ctx, "u1", -200, 0, "admin1", ""); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("wallet underflow err = %v, want ErrNegativeBalance", err)
	}
	if _, err := svc.AdjustBalances(ctx, "u1", 0, -60, "admin1", ""); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("winnings underflow err = %v, want ErrNegativeBalance", err)
	}

	user, _ := store.User("u1")
	if user.WalletBalance != 100 || user.WinningsBalance != 50 {
		t.Errorf("rejected adjustment changed balances: %+v", user)
	}
	if store.Commits() != 0 {
		t.Errorf("commits = %d, want 0", store.Commits())
	}
}

func TestAdjustBalancesUnknownUser(t *testing.T) {
	store := ledger.NewMemStore()
	svc := NewAdminService(store, nil)

	if _, err := svc.AdjustBalances(context.Background(), "ghost", 10, 0, "admin1", ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}
