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
)

// RewardGateService drives the sequential ad-confirmation flow: N confirmed
// ad views unlock either a free-match enrollment or a direct wallet credit.
// An attempt's step counter lives in the attempt store, never in the ledger;
// the ledger is touched exactly once, by the terminal step. The state
// machine leaves the waiting state before issuing that ledger call, so a
// duplicated completion signal can never earn a second credit.
type RewardGateService struct {
	Store    ledger.Store
	Attempts AttemptStore
	Enroll   *EnrollmentService
	Ads      AdProvider
	Cfg      config.BusinessConfig
}

func NewRewardGateService(store ledger.Store, attempts AttemptStore, enroll *EnrollmentService, ads AdProvider, cfg config.BusinessConfig) *RewardGateService {
	return &RewardGateService{Store: store, Attempts: attempts, Enroll: enroll, Ads: ads, Cfg: cfg}
}

// rewardFor scales the configured per-ad reward by variant, mirroring the
// portal's video/interactive/survey tiers.
func (s *RewardGateService) rewardFor(variant AdVariant) int64 {
	base := s.Cfg.EarnPerAd
	switch variant {
	case AdEarnInteractive:
		return base * 3 / 2
	case AdEarnSurvey:
		return base * 2
	default:
		return base
	}
}

// Begin starts a reward attempt. The daily cap is checked against the
// user's counter before any step begins; a capped user is rejected with no
// ledger transaction issued. The cap is re-checked inside the terminal
// transaction, which is the authoritative one.
func (s *RewardGateService) Begin(ctx context.Context, userID string, variant AdVariant, matchID string) (*Attempt, error) {
	keys := []ledger.Key{ledger.UserKey(userID)}
	if variant == AdJoinMatch {
		if matchID == "" {
			return nil, ErrMatchNotFound
		}
		keys = append(keys, ledger.MatchKey(matchID))
	}

	snapshot, err := s.Store.Load(ctx, keys)
	if err != nil {
		return nil, err
	}
	user, ok := snapshot.User(userID)
	if !ok {
		return nil, ErrUserNotFound
	}

	attempt := &Attempt{
		ID:        uuid.NewString(),
		UserID:    userID,
		Variant:   variant,
		State:     AttemptWaiting,
		CreatedAt: time.Now(),
	}

	if variant == AdJoinMatch {
		match, ok := snapshot.Match(matchID)
		if !ok {
			return nil, ErrMatchNotFound
		}
		if match.Kind != models.MatchKindFree {
			return nil, ErrNotFreeMatch
		}
		if !match.Joinable() {
			return nil, ErrMatchClosed
		}
		if user.HasJoined(models.MatchKindFree, matchID) {
			return nil, ErrAlreadyJoined
		}
		if user.AdsWatchedToday >= s.Cfg.MaxFreeMatchesPerDay {
			return nil, ErrDailyCapReached
		}
		attempt.MatchID = matchID
		attempt.AdsRequired = match.AdsRequired
		if attempt.AdsRequired < 1 {
			attempt.AdsRequired = 1
		}
	} else {
		if user.EarnAdsWatchedToday >= s.Cfg.MaxEarnAdsPerDay {
			return nil, ErrDailyCapReached
		}
		attempt.AdsRequired = 1
		attempt.Reward = s.rewardFor(variant)
	}

	if err := s.Attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Confirm records one confirmed ad view. On the step that satisfies
// AdsRequired the attempt transitions waiting → crediting and the terminal
// ledger effect runs; any further confirmation hits a non-waiting state and
// is rejected without touching the ledger.
func (s *RewardGateService) Confirm(ctx context.Context, userID, attemptID string) (*Attempt, error) {
	attempt, err := s.Attempts.Advance(ctx, userID, attemptID, func(a *Attempt) error {
		if a.State != AttemptWaiting {
			return ErrAttemptFinished
		}
		a.AdsWatched++
		if a.AdsWatched >= a.AdsRequired {
			a.State = AttemptCrediting
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if attempt.State != AttemptCrediting {
		return attempt, nil // more confirmations needed
	}

	if err := s.settle(ctx, attempt); err != nil {
		// Attempt failed: steps are discarded, no credit was given, and the
		// attempt can never be replayed into a credit.
		if _, advErr := s.Attempts.Advance(ctx, userID, attemptID, func(a *Attempt) error {
			a.State = AttemptCancelled
			return nil
		}); advErr != nil {
			log.Printf("⚠️ Failed to cancel attempt %s after settle error: %v", attemptID, advErr)
		}
		return nil, err
	}

	return s.Attempts.Advance(ctx, userID, attemptID, func(a *Attempt) error {
		a.State = AttemptCredited
		return nil
	})
}

// settle performs the attempt's single ledger touch.
func (s *RewardGateService) settle(ctx context.Context, attempt *Attempt) error {
	if attempt.Variant == AdJoinMatch {
		err := ledger.Transact(ctx, s.Store, []ledger.Key{ledger.UserKey(attempt.UserID)}, func(txn *ledger.Txn) error {
			user, ok := txn.User(attempt.UserID)
			if !ok {
				return ErrUserNotFound
			}
			if user.AdsWatchedToday >= s.Cfg.MaxFreeMatchesPerDay {
				return ErrDailyCapReached
			}
			user.AdsWatchedToday++
			txn.Update(ledger.UserKey(attempt.UserID))
			return nil
		})
		if err != nil {
			return err
		}
		return s.Enroll.JoinMatch(ctx, attempt.UserID, attempt.MatchID, 0)
	}

	return ledger.Transact(ctx, s.Store, []ledger.Key{ledger.UserKey(attempt.UserID)}, func(txn *ledger.Txn) error {
		user, ok := txn.User(attempt.UserID)
		if !ok {
			return ErrUserNotFound
		}
		if user.EarnAdsWatchedToday >= s.Cfg.MaxEarnAdsPerDay {
			return ErrDailyCapReached
		}

		user.EarnAdsWatchedToday++
		user.WalletBalance += attempt.Reward
		txn.Update(ledger.UserKey(attempt.UserID))
		txn.Append(&models.LedgerEvent{
			Type:     models.EventAdRewardCredited,
			UserID:   attempt.UserID,
			RecordID: attempt.ID,
			Amount:   attempt.Reward,
		})
		return nil
	})
}

// Cancel abandons a waiting attempt. Partial progress confers no credit and
// is not persisted anywhere; a new attempt restarts from zero.
func (s *RewardGateService) Cancel(ctx context.Context, userID, attemptID string) error {
	_, err := s.Attempts.Advance(ctx, userID, attemptID, func(a *Attempt) error {
		if a.State != AttemptWaiting {
			return ErrAttemptFinished
		}
		a.State = AttemptCancelled
		return nil
	})
	if err != nil {
		return err
	}
	return s.Attempts.Delete(ctx, userID, attemptID)
}

// --- Endpoints ---

// BeginAttemptEndpoint handles POST /ads/attempts.
func (s *RewardGateService) BeginAttemptEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Type    AdVariant `json:"type"`
		MatchID string    `json:"match_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	switch req.Type {
	case AdJoinMatch, AdEarnVideo, AdEarnInteractive, AdEarnSurvey:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown ad type"})
	}

	attempt, err := s.Begin(c.Context(), userID, req.Type, req.MatchID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(attempt)
}

// ConfirmAttemptEndpoint handles POST /ads/attempts/:id/confirm. The ad
// provider's outcome gates the step; the reward gate itself stays agnostic
// to how the confirmation was obtained.
func (s *RewardGateService) ConfirmAttemptEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	attemptID := c.Params("id")

	confirmed, err := s.Ads.RequestConfirmation(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	if !confirmed {
		return respondError(c, ErrAdUnavailable)
	}

	attempt, err := s.Confirm(c.Context(), userID, attemptID)
	if err != nil {
		return respondError(c, err)
	}

	if attempt.State == AttemptCredited {
		log.Printf("🎁 Attempt %s completed for user %s (%s)", attemptID, userID, attempt.Variant)
	}
	return c.JSON(attempt)
}

// CancelAttemptEndpoint handles DELETE /ads/attempts/:id.
func (s *RewardGateService) CancelAttemptEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	attemptID := c.Params("id")

	if err := s.Cancel(c.Context(), userID, attemptID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Attempt cancelled"})
}
