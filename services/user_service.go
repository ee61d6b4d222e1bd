package services

import (
	"context"
	"log"
	"time"

	"arena-ledger-system/ledger"
	"arena-ledger-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UserService owns user initialization and the read-only profile and
// leaderboard views. Reads happen outside ledger transactions and tolerate
// slightly stale data.
type UserService struct {
	Store ledger.Store
	DB    *gorm.DB
}

func NewUserService(store ledger.Store, db *gorm.DB) *UserService {
	return &UserService{Store: store, DB: db}
}

// EnsureUserInitialized creates the user's ledger record with zeroed
// balances and counters. It is idempotent and is invoked once at
// identity-provider-confirmed first login — never implicitly inside a read
// path, which keeps ledger reads side-effect free.
func (s *UserService) EnsureUserInitialized(ctx context.Context, userID, name, email string) (*models.PortalUser, error) {
	var result *models.PortalUser

	err := ledger.Transact(ctx, s.Store, []ledger.Key{ledger.UserKey(userID)}, func(txn *ledger.Txn) error {
		if existing, ok := txn.User(userID); ok {
			result = existing
			return nil // already initialized; nothing to write
		}

		user := &models.PortalUser{
			ID:        userID,
			Name:      name,
			Email:     email,
			CreatedAt: time.Now(),
		}
		txn.Insert(user)
		txn.Append(&models.LedgerEvent{
			Type:   models.EventUserInitialized,
			UserID: userID,
		})
		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// InitEndpoint handles POST /users/init, called by the gateway after the
// identity provider confirms a login.
func (s *UserService) InitEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		req.Name = "Player"
	}

	user, err := s.EnsureUserInitialized(c.Context(), userID, req.Name, req.Email)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("👤 User %s initialized", userID)
	return c.JSON(user)
}

// MeEndpoint handles GET /users/me.
func (s *UserService) MeEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	snapshot, err := s.Store.Load(c.Context(), []ledger.Key{ledger.UserKey(userID)})
	if err != nil {
		return respondError(c, err)
	}
	user, ok := snapshot.User(userID)
	if !ok {
		return respondError(c, ErrUserNotFound)
	}

	return c.JSON(user)
}

// LeaderboardEndpoint handles GET /leaderboard: top players by winnings.
// A listing view only — not part of the ledger's consistency guarantee.
func (s *UserService) LeaderboardEndpoint(c *fiber.Ctx) error {
	type entry struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		WinningsBalance int64  `json:"winnings_balance"`
		TotalMatches    int64  `json:"total_matches"`
	}

	var entries []entry
	if err := s.DB.Model(&models.PortalUser{}).
		Select("id, name, winnings_balance, total_matches").
		Order("winnings_balance DESC, total_matches DESC").
		Limit(50).
		Scan(&entries).Error; err != nil {
		log.Printf("DB Error fetching leaderboard: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
	}

	return c.JSON(entries)
}
