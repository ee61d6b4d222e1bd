package services

import (
	"context"
	"log"
	"time"

	"arena-ledger-system/config"
	"arena-ledger-system/ledger"
	"arena-ledger-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WalletService manages the deposit/withdrawal request lifecycle:
// pending → approved | rejected, no other transitions. Withdrawals lock the
// funds at creation time; every balance change commits in the same ledger
// transaction as the status write, so a crash can never separate the two.
type WalletService struct {
	Store ledger.Store
	DB    *gorm.DB
	Cfg   config.BusinessConfig
}

func NewWalletService(store ledger.Store, db *gorm.DB, cfg config.BusinessConfig) *WalletService {
	return &WalletService{Store: store, DB: db, Cfg: cfg}
}

// CreateDeposit records a pending deposit request. No balance changes until
// an operator approves it.
func (s *WalletService) CreateDeposit(ctx context.Context, userID string, amount int64, method, reference string) (*models.FundRequest, error) {
	if amount < s.Cfg.MinDeposit {
		return nil, ErrAmountBelowMinimum
	}

	req := &models.FundRequest{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      models.FundRequestDeposit,
		Amount:    amount,
		Method:    method,
		Reference: reference,
		Status:    models.FundRequestPending,
		CreatedAt: time.Now(),
	}

	err := ledger.Transact(ctx, s.Store, []ledger.Key{ledger.UserKey(userID)}, func(txn *ledger.Txn) error {
		if _, ok := txn.User(userID); !ok {
			return ErrUserNotFound
		}
		txn.Insert(req)
		txn.Append(&models.LedgerEvent{
			Type:     models.EventDepositRequested,
			UserID:   userID,
			RecordID: req.ID,
			Amount:   amount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// CreateWithdrawal locks amount out of the winnings balance and records the
// pending request in one commit, so the same funds cannot be requested
// twice.
func (s *WalletService) CreateWithdrawal(ctx context.Context, userID string, amount int64, method, account string) (*models.FundRequest, error) {
	if amount < s.Cfg.MinWithdrawal {
		return nil, ErrAmountBelowMinimum
	}

	req := &models.FundRequest{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      models.FundRequestWithdrawal,
		Amount:    amount,
		Method:    method,
		Account:   account,
		Status:    models.FundRequestPending,
		CreatedAt: time.Now(),
	}

	err := ledger.Transact(ctx, s.Store, []ledger.Key{ledger.UserKey(userID)}, func(txn *ledger.Txn) error {
		user, ok := txn.User(userID)
		if !ok {
			return ErrUserNotFound
		}
		if user.WinningsBalance < amount {
			return ErrInsufficientWinnings
		}

		user.WinningsBalance -= amount
		txn.Update(ledger.UserKey(userID))
		txn.Insert(req)
		txn.Append(&models.LedgerEvent{
			Type:     models.EventWithdrawalRequested,
			UserID:   userID,
			RecordID: req.ID,
			Amount:   amount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Resolve finalizes a pending request. Approved deposits credit the wallet;
// rejected withdrawals restore the locked winnings; the other two cases
// touch no balance. The request status is re-read and written in the same
// transaction as any balance change, and a request already resolved fails
// with ErrRequestNotPending — the transition happens exactly once.
func (s *WalletService) Resolve(ctx context.Context, requestID string, approve bool, resolvedBy string) (*models.FundRequest, error) {
	// Preliminary read to learn which user record the transaction spans.
	// The authoritative pending check happens inside the transaction.
	peek, err := s.Store.Load(ctx, []ledger.Key{ledger.RequestKey(requestID)})
	if err != nil {
		return nil, err
	}
	peeked, ok := peek.Request(requestID)
	if !ok {
		return nil, ErrRequestNotFound
	}
	userID := peeked.UserID

	var resolved *models.FundRequest
	keys := []ledger.Key{ledger.RequestKey(requestID), ledger.UserKey(userID)}
	err = ledger.Transact(ctx, s.Store, keys, func(txn *ledger.Txn) error {
		req, ok := txn.Request(requestID)
		if !ok {
			return ErrRequestNotFound
		}
		if req.Status != models.FundRequestPending {
			return ErrRequestNotPending
		}
		user, ok := txn.User(userID)
		if !ok {
			return ErrUserNotFound
		}

		eventType := models.EventRequestRejected
		if approve {
			eventType = models.EventRequestApproved
			req.Status = models.FundRequestApproved
			if req.Kind == models.FundRequestDeposit {
				user.WalletBalance += req.Amount
				txn.Update(ledger.UserKey(userID))
			}
			// Withdrawal approval: funds were already deducted at creation.
		} else {
			req.Status = models.FundRequestRejected
			if req.Kind == models.FundRequestWithdrawal {
				user.WinningsBalance += req.Amount
				txn.Update(ledger.UserKey(userID))
			}
			// Deposit rejection: nothing was ever credited.
		}

		now := time.Now()
		req.ResolvedBy = resolvedBy
		req.ResolvedAt = &now
		txn.Update(ledger.RequestKey(requestID))
		txn.Append(&models.LedgerEvent{
			Type:     eventType,
			UserID:   userID,
			RecordID: requestID,
			Amount:   req.Amount,
		})

		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// --- User endpoints ---

// CreateDepositEndpoint handles POST /wallet/deposits.
func (s *WalletService) CreateDepositEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Amount    int64  `json:"amount"`
		Method    string `json:"method"`
		Reference string `json:"reference"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Amount <= 0 || req.Method == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount and method are required"})
	}

	created, err := s.CreateDeposit(c.Context(), userID, req.Amount, req.Method, req.Reference)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("💰 Deposit request %s created for user %s (amount %d)", created.ID, userID, created.Amount)
	return c.Status(fiber.StatusCreated).JSON(created)
}

// CreateWithdrawalEndpoint handles POST /wallet/withdrawals.
func (s *WalletService) CreateWithdrawalEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Amount  int64  `json:"amount"`
		Method  string `json:"method"`
		Account string `json:"account"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Amount <= 0 || req.Method == "" || req.Account == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount, method and account are required"})
	}

	created, err := s.CreateWithdrawal(c.Context(), userID, req.Amount, req.Method, req.Account)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("💸 Withdrawal request %s created for user %s (amount %d locked)", created.ID, userID, created.Amount)
	return c.Status(fiber.StatusCreated).JSON(created)
}

// MyRequestsEndpoint lists the caller's fund requests, newest first.
func (s *WalletService) MyRequestsEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var requests []models.FundRequest
	if err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(100).
		Find(&requests).Error; err != nil {
		log.Printf("DB Error fetching requests for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch requests"})
	}

	return c.JSON(requests)
}

// --- Admin endpoints ---

// PendingRequestsEndpoint lists pending requests, optionally by kind.
func (s *WalletService) PendingRequestsEndpoint(c *fiber.Ctx) error {
	query := s.DB.Where("status = ?", models.FundRequestPending)
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var requests []models.FundRequest
	if err := query.Order("created_at ASC").Find(&requests).Error; err != nil {
		log.Printf("DB Error fetching pending requests: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch requests"})
	}

	return c.JSON(requests)
}

// ResolveRequestEndpoint handles PUT /admin/requests/:id/approve|reject.
func (s *WalletService) ResolveRequestEndpoint(c *fiber.Ctx) error {
	adminID := c.Locals("user_id").(string)
	requestID := c.Params("id")
	decision := c.Params("decision")

	if decision != "approve" && decision != "reject" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "decision must be approve or reject"})
	}

	resolved, err := s.Resolve(c.Context(), requestID, decision == "approve", adminID)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("🏛️ Request %s %sd by %s", requestID, decision, adminID)
	return c.JSON(resolved)
}
