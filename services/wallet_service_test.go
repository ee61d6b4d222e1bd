package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"arena-ledger-system/config"
	"arena-ledger-system/ledger"
	"arena-ledger-system/models"
)

func walletFixture(t *testing.T, winnings int64) (*WalletService, *ledger.MemStore) {
	t.Helper()
	store := ledger.NewMemStore()
	store.Seed(&models.PortalUser{ID: "u1", WalletBalance: 0, WinningsBalance: winnings})
	cfg := config.BusinessConfig{MinDeposit: 50, MinWithdrawal: 100}
	return NewWalletService(store, nil, cfg), store
}

func TestCreateDepositLeavesBalancesUntouched(t *testing.T) {
	svc, store := walletFixture(t, 0)

	req, err := svc.CreateDeposit(context.Background(), "u1", 200, "bkash", "TX123")
	if err != nil {
		t.Fatalf("CreateDeposit failed: %v", err)
	}
	if req.Status != models.FundRequestPending || req.Kind != models.FundRequestDeposit {
		t.Errorf("unexpected request: %+v", req)
	}

	user, _ := store.User("u1")
	if user.WalletBalance != 0 {
		t.Errorf("wallet = %d, deposit must not credit before approval", user.WalletBalance)
	}

	stored, ok := store.Request(req.ID)
	if !ok || stored.Amount != 200 {
		t.Errorf("pending request not persisted: %+v", stored)
	}
}

func TestCreateDepositBelowMinimum(t *testing.T) {
	svc, store := walletFixture(t, 0)

	if _, err := svc.CreateDeposit(context.Background(), "u1", 10, "bkash", ""); !errors.Is(err, ErrAmountBelowMinimum) {
		t.Fatalf("err = %v, want ErrAmountBelowMinimum", err)
	}
	if store.Commits() != 0 {
		t.Errorf("commits = %d, want 0", store.Commits())
	}
}

func TestCreateWithdrawalLocksFundsImmediately(t *testing.T) {
	svc, store := walletFixture(t, 300)

	req, err := svc.CreateWithdrawal(context.Background(), "u1", 300, "nagad", "017XXXXXXXX")
	if err != nil {
		t.Fatalf("CreateWithdrawal failed: %v", err)
	}

	user, _ := store.User("u1")
	if user.WinningsBalance != 0 {
		t.Errorf("winnings = %d, want 0 (locked at creation)", user.WinningsBalance)
	}

	// The locked funds cannot back a second request.
	if _, err := svc.CreateWithdrawal(context.Background(), "u1", 100, "nagad", "017XXXXXXXX"); !errors.Is(err, ErrInsufficientWinnings) {
		t.Fatalf("second withdrawal err = %v, want ErrInsufficientWinnings", err)
	}

	stored, _ := store.Request(req.ID)
	if stored.Status != models.FundRequestPending {
		t.Errorf("status = %s, want pending", stored.Status)
	}
}

func TestApproveDepositCreditsWallet(t *testing.T) {
	svc, store := walletFixture(t, 0)
	req, _ := svc.CreateDeposit(context.Background(), "u1", 200, "bkash", "TX123")

	resolved, err := svc.Resolve(context.Background(), req.ID, true, "admin1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Status != models.FundRequestApproved || resolved.ResolvedBy != "admin1" || resolved.ResolvedAt == nil {
		t.Errorf("unexpected resolution: %+v", resolved)
	}

	user, _ := store.User("u1")
	if user.WalletBalance != 200 {
		t.Errorf("wallet = %d, want 200", user.WalletBalance)
	}
}

func TestRejectDepositTouchesNoBalance(t *testing.T) {
	svc, store := walletFixture(t, 0)
	req, _ := svc.CreateDeposit(context.Background(), "u1", 200, "bkash", "TX123")

	if _, err := svc.Resolve(context.Background(), req.ID, false, "admin1"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	user, _ := store.User("u1")
	if user.WalletBalance != 0 {
		t.Errorf("wallet = %d, rejected deposit must credit nothing", user.WalletBalance)
	}
	stored, _ := store.Request(req.ID)
	if stored.Status != models.FundRequestRejected {
		t.Errorf("status = %s, want rejected", stored.Status)
	}
}

func TestApproveWithdrawalChangesNoBalance(t *testing.T) {
	svc, store := walletFixture(t, 300)
	req, _ := svc.CreateWithdrawal(context.Background(), "u1", 300, "nagad", "017XXXXXXXX")

	if _, err := svc.Resolve(context.Background(), req.ID, true, "admin1"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Funds left at creation; approval only flips the status.
	user, _ := store.User("u1")
	if user.WinningsBalance != 0 {
		t.Errorf("winnings = %d, want 0", user.WinningsBalance)
	}
}

func TestRejectWithdrawalRestoresLockedFunds(t *testing.T) {
	svc, store := walletFixture(t, 300)
	req, _ := svc.CreateWithdrawal(context.Background(), "u1", 300, "nagad", "017XXXXXXXX")

	if _, err := svc.Resolve(context.Background(), req.ID, false, "admin1"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	user, _ := store.User("u1")
	if user.WinningsBalance != 300 {
		t.Errorf("winnings = %d, want 300 restored", user.WinningsBalance)
	}
}

func TestResolveIsExactlyOnce(t *testing.T) {
	svc, store := walletFixture(t, 0)
	req, _ := svc.CreateDeposit(context.Background(), "u1", 200, "bkash", "TX123")

	if _, err := svc.Resolve(context.Background(), req.ID, true, "admin1"); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), req.ID, true, "admin2"); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("second resolve err = %v, want ErrRequestNotPending", err)
	}

	user, _ := store.User("u1")
	if user.WalletBalance != 200 {
		t.Errorf("wallet = %d, want 200 (credited once)", user.WalletBalance)
	}
	stored, _ := store.Request(req.ID)
	if stored.ResolvedBy != "admin1" {
		t.Errorf("resolvedBy = %s, first resolution must stand", stored.ResolvedBy)
	}
}

func TestConcurrentResolversSingleWinner(t *testing.T) {
	fastLedgerRetries(t)

	svc, store := walletFixture(t, 300)
	req, _ := svc.CreateWithdrawal(context.Background(), "u1", 300, "nagad", "017XXXXXXXX")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	decisions := []bool{true, false}
	for _, approve := range decisions {
		wg.Add(1)
		go func(approve bool) {
			defer wg.Done()
			_, err := svc.Resolve(context.Background(), req.ID, approve, "admin")
			results <- err
		}(approve)
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrRequestNotPending):
			lost++
		default:
			t.Fatalf("unexpected resolve error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("won=%d lost=%d, want exactly one winner", won, lost)
	}

	// Whichever decision won, the balance matches its terminal status.
	user, _ := store.User("u1")
	stored, _ := store.Request(req.ID)
	switch stored.Status {
	case models.FundRequestApproved:
		if user.WinningsBalance != 0 {
			t.Errorf("winnings = %d after approval, want 0", user.WinningsBalance)
		}
	case models.FundRequestRejected:
		if user.WinningsBalance != 300 {
			t.Errorf("winnings = %d after rejection, want 300", user.WinningsBalance)
		}
	default:
		t.Errorf("status = %s, want terminal", stored.Status)
	}
}

func TestResolveUnknownRequest(t *testing.T) {
	svc, _ := walletFixture(t, 0)
	if _, err := svc.Resolve(context.Background(), "ghost", true, "admin1"); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("err = %v, want ErrRequestNotFound", err)
	}
}
