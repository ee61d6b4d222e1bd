package services

import (
	"context"
	"log"

	"arena-ledger-system/ledger"
	"arena-ledger-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminService covers the privileged operations that touch user records
// directly: balance adjustments, user deletion and the oversight dashboard.
// Privileged or not, every balance write still goes through the ledger —
// there is no bypass path.
type AdminService struct {
	Store ledger.Store
	DB    *gorm.DB
}

func NewAdminService(store ledger.Store, db *gorm.DB) *AdminService {
	return &AdminService{Store: store, DB: db}
}

// AdjustBalances applies deltas to a user's balances. Either balance going
// negative rejects the whole adjustment.
func (s *AdminService) AdjustBalances(ctx context.Context, userID string, walletDelta, winningsDelta int64, adminID, reason string) (*models.PortalUser, error) {
	var result *models.PortalUser

	err := ledger.Transact(ctx, s.Store, []ledger.Key{ledger.UserKey(userID)}, func(txn *ledger.Txn) error {
		user, ok := txn.User(userID)
		if !ok {
			return ErrUserNotFound
		}
		if user.WalletBalance+walletDelta < 0 || user.WinningsBalance+winningsDelta < 0 {
			return ErrNegativeBalance
		}

		user.WalletBalance += walletDelta
		user.WinningsBalance += winningsDelta
		txn.Update(ledger.UserKey(userID))
		txn.Append(&models.LedgerEvent{
			Type:     models.EventBalanceAdjusted,
			UserID:   userID,
			RecordID: adminID,
			Amount:   walletDelta + winningsDelta,
			Payload:  reason,
		})

		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AdjustBalancesEndpoint handles POST /admin/users/:id/balances. Prize
// distribution after a completed match uses this with a winnings delta.
func (s *AdminService) AdjustBalancesEndpoint(c *fiber.Ctx) error {
	adminID := c.Locals("user_id").(string)
	userID := c.Params("id")

	var req struct {
		WalletDelta   int64  `json:"wallet_delta"`
		WinningsDelta int64  `json:"winnings_delta"`
		Reason        string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WalletDelta == 0 && req.WinningsDelta == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nothing to adjust"})
	}

	user, err := s.AdjustBalances(c.Context(), userID, req.WalletDelta, req.WinningsDelta, adminID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("🏛️ Balances adjusted for user %s by %s (wallet %+d, winnings %+d)", userID, adminID, req.WalletDelta, req.WinningsDelta)
	return c.JSON(user)
}

// DeleteUserEndpoint handles DELETE /admin/users/:id. Administrative
// deletion is outside the normal flow's invariants; it soft-deletes so the
// ledger history stays intact.
func (s *AdminService) DeleteUserEndpoint(c *fiber.Ctx) error {
	userID := c.Params("id")

	res := s.DB.Delete(&models.PortalUser{}, "id = ?", userID)
	if res.Error != nil {
		log.Printf("DB Error deleting user %s: %v", userID, res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete user"})
	}
	if res.RowsAffected == 0 {
		return respondError(c, ErrUserNotFound)
	}

	log.Printf("🗑️ User %s deleted by %s", userID, c.Locals("user_id"))
	return c.JSON(fiber.Map{"message": "User deleted"})
}

// ListUsersEndpoint handles GET /admin/users.
func (s *AdminService) ListUsersEndpoint(c *fiber.Ctx) error {
	var users []models.PortalUser
	if err := s.DB.Order("created_at DESC").Limit(200).Find(&users).Error; err != nil {
		log.Printf("DB Error fetching users: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch users"})
	}
	return c.JSON(users)
}

// StatsEndpoint handles GET /admin/stats — the oversight dashboard counts.
func (s *AdminService) StatsEndpoint(c *fiber.Ctx) error {
	var pendingDeposits, pendingWithdrawals, totalUsers, activeMatches int64

	if err := s.DB.Model(&models.FundRequest{}).
		Where("status = ? AND kind = ?", models.FundRequestPending, models.FundRequestDeposit).
		Count(&pendingDeposits).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if err := s.DB.Model(&models.FundRequest{}).
		Where("status = ? AND kind = ?", models.FundRequestPending, models.FundRequestWithdrawal).
		Count(&pendingWithdrawals).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if err := s.DB.Model(&models.PortalUser{}).Count(&totalUsers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if err := s.DB.Model(&models.Match{}).
		Where("status IN ?", []models.MatchStatus{models.MatchStatusUpcoming, models.MatchStatusLive}).
		Count(&activeMatches).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(fiber.Map{
		"pending_deposits":    pendingDeposits,
		"pending_withdrawals": pendingWithdrawals,
		"total_users":         totalUsers,
		"active_matches":      activeMatches,
	})
}
