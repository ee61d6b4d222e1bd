package services

import (
	"context"
	"log"
	"time"

	"arena-ledger-system/ledger"
	"arena-ledger-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnrollmentService commits a user's join into a match. Capacity, duplicate
// and fee checks all run inside one ledger transaction spanning the user and
// match records, so no interleaving of concurrent joins can oversubscribe a
// match or double-charge a wallet.
type EnrollmentService struct {
	Store ledger.Store
	DB    *gorm.DB
}

func NewEnrollmentService(store ledger.Store, db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{Store: store, DB: db}
}

// JoinMatch enrolls userID into matchID for exactly fee. The reward gate
// uses fee 0 for ad-gated matches.
func (s *EnrollmentService) JoinMatch(ctx context.Context, userID, matchID string, fee int64) error {
	return s.join(ctx, userID, matchID, &fee)
}

// JoinAtListedFee enrolls userID at the match's current entry fee, read
// inside the transaction. Any balance check a client did beforehand is
// advisory; this is the authoritative one.
func (s *EnrollmentService) JoinAtListedFee(ctx context.Context, userID, matchID string) error {
	return s.join(ctx, userID, matchID, nil)
}

func (s *EnrollmentService) join(ctx context.Context, userID, matchID string, feeOverride *int64) error {
	keys := []ledger.Key{ledger.UserKey(userID), ledger.MatchKey(matchID)}

	return ledger.Transact(ctx, s.Store, keys, func(txn *ledger.Txn) error {
		match, ok := txn.Match(matchID)
		if !ok {
			return ErrMatchNotFound
		}
		user, ok := txn.User(userID)
		if !ok {
			return ErrUserNotFound
		}

		if !match.Joinable() {
			return ErrMatchClosed
		}
		if user.HasJoined(match.Kind, matchID) {
			return ErrAlreadyJoined
		}
		if match.JoinedPlayers >= match.MaxPlayers {
			return ErrMatchFull
		}

		fee := match.EntryFee
		if feeOverride != nil {
			fee = *feeOverride
		}
		if fee > 0 && user.WalletBalance < fee {
			return ErrInsufficientBalance
		}

		match.JoinedPlayers++
		user.AddJoined(match.Kind, matchID)
		user.TotalMatches++
		if fee > 0 {
			user.WalletBalance -= fee
		}

		txn.Update(ledger.MatchKey(matchID))
		txn.Update(ledger.UserKey(userID))
		txn.Insert(&models.MatchEntry{
			ID:       uuid.NewString(),
			MatchID:  matchID,
			UserID:   userID,
			Kind:     match.Kind,
			FeePaid:  fee,
			JoinedAt: time.Now(),
		})
		txn.Append(&models.LedgerEvent{
			Type:     models.EventMatchJoined,
			UserID:   userID,
			RecordID: matchID,
			Amount:   fee,
		})
		return nil
	})
}

// JoinMatchEndpoint handles POST /matches/:id/join for fee-based matches.
// Ad-gated matches go through the reward gate instead.
func (s *EnrollmentService) JoinMatchEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	matchID := c.Params("id")

	if err := s.JoinAtListedFee(c.Context(), userID, matchID); err != nil {
		return respondError(c, err)
	}

	log.Printf("✅ User %s joined match %s", userID, matchID)
	return c.JSON(fiber.Map{"message": "Joined successfully", "match_id": matchID})
}

// MatchEntriesEndpoint lists the participants of a match (admin view).
func (s *EnrollmentService) MatchEntriesEndpoint(c *fiber.Ctx) error {
	matchID := c.Params("id")

	var entries []models.MatchEntry
	if err := s.DB.Where("match_id = ?", matchID).
		Order("joined_at ASC").
		Find(&entries).Error; err != nil {
		log.Printf("DB Error fetching entries for match %s: %v", matchID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch entries"})
	}

	return c.JSON(entries)
}
