package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"arena-ledger-system/ledger"
	"arena-ledger-system/models"
	"arena-ledger-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// MatchService owns match lifecycle on behalf of operators, plus the public
// listings. Status moves upcoming → live → completed, or any state →
// archived; archived matches disappear from every active listing and join
// path but stay queryable for history.
type MatchService struct {
	Store ledger.Store
	DB    *gorm.DB
}

func NewMatchService(store ledger.Store, db *gorm.DB) *MatchService {
	return &MatchService{Store: store, DB: db}
}

// validStatusChange encodes the allowed transitions.
func validStatusChange(from, to models.MatchStatus) bool {
	if to == models.MatchStatusArchived {
		return true
	}
	switch from {
	case models.MatchStatusUpcoming:
		return to == models.MatchStatusLive
	case models.MatchStatusLive:
		return to == models.MatchStatusCompleted
	}
	return false
}

// SetStatus transitions a match's status through the ledger.
func (s *MatchService) SetStatus(ctx context.Context, matchID string, to models.MatchStatus) error {
	return ledger.Transact(ctx, s.Store, []ledger.Key{ledger.MatchKey(matchID)}, func(txn *ledger.Txn) error {
		match, ok := txn.Match(matchID)
		if !ok {
			return ErrMatchNotFound
		}
		if match.Status == to {
			return nil // idempotent
		}
		if !validStatusChange(match.Status, to) {
			return fmt.Errorf("%w: cannot move %s from %s to %s", ErrMatchClosed, matchID, match.Status, to)
		}

		match.Status = to
		txn.Update(ledger.MatchKey(matchID))
		if to == models.MatchStatusArchived {
			txn.Append(&models.LedgerEvent{
				Type:     models.EventMatchArchived,
				RecordID: matchID,
			})
		}
		return nil
	})
}

// --- Public endpoints ---

// ListMatchesEndpoint handles GET /matches. Archived matches are excluded;
// room credentials are never exposed here (see RoomEndpoint).
func (s *MatchService) ListMatchesEndpoint(c *fiber.Ctx) error {
	query := s.DB.Where("status <> ?", models.MatchStatusArchived)
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if status := c.Query("status"); status != "" && status != string(models.MatchStatusArchived) {
		query = query.Where("status = ?", status)
	}

	var matches []models.Match
	if err := query.Order("start_time ASC").Find(&matches).Error; err != nil {
		log.Printf("DB Error fetching matches: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch matches"})
	}

	for i := range matches {
		matches[i].RoomID = ""
		matches[i].RoomPassword = ""
	}
	return c.JSON(matches)
}

// GetMatchEndpoint handles GET /matches/:id.
func (s *MatchService) GetMatchEndpoint(c *fiber.Ctx) error {
	var match models.Match
	if err := s.DB.First(&match, "id = ?", c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return respondError(c, ErrMatchNotFound)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if match.Status == models.MatchStatusArchived {
		return respondError(c, ErrMatchNotFound)
	}

	match.RoomID = ""
	match.RoomPassword = ""
	return c.JSON(match)
}

// RoomEndpoint handles GET /matches/:id/room: room credentials, visible
// only to enrolled players once an operator has set them.
func (s *MatchService) RoomEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	matchID := c.Params("id")

	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return respondError(c, ErrMatchNotFound)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var count int64
	if err := s.DB.Model(&models.MatchEntry{}).
		Where("match_id = ? AND user_id = ?", matchID, userID).
		Count(&count).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if count == 0 {
		return respondError(c, ErrNotJoined)
	}

	return c.JSON(fiber.Map{
		"match_id":      matchID,
		"room_id":       match.RoomID,
		"room_password": match.RoomPassword,
	})
}

// --- Admin endpoints ---

// CreateMatchEndpoint handles POST /admin/matches (multipart form, optional
// banner image).
func (s *MatchService) CreateMatchEndpoint(c *fiber.Ctx) error {
	name := c.FormValue("name")
	kind := models.MatchKind(c.FormValue("kind"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}
	if kind != models.MatchKindTournament && kind != models.MatchKindFree {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "kind must be tournament or free"})
	}

	maxPlayers, err := strconv.Atoi(c.FormValue("max_players"))
	if err != nil || maxPlayers <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_players must be a positive integer"})
	}

	entryFee, _ := strconv.ParseInt(c.FormValue("entry_fee", "0"), 10, 64)
	prizePool, _ := strconv.ParseInt(c.FormValue("prize_pool", "0"), 10, 64)
	prize, _ := strconv.ParseInt(c.FormValue("prize", "0"), 10, 64)
	adsRequired, _ := strconv.Atoi(c.FormValue("ads_required", "0"))

	if kind == models.MatchKindFree {
		entryFee = 0
		if adsRequired < 1 {
			adsRequired = 1
		}
	} else {
		adsRequired = 0
	}
	if entryFee < 0 || prizePool < 0 || prize < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amounts cannot be negative"})
	}

	startTime, err := time.Parse(time.RFC3339, c.FormValue("start_time"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be RFC3339"})
	}

	match := &models.Match{
		ID:          uuid.NewString(),
		Name:        name,
		Kind:        kind,
		EntryFee:    entryFee,
		PrizePool:   prizePool,
		Prize:       prize,
		MaxPlayers:  maxPlayers,
		Status:      models.MatchStatusUpcoming,
		AdsRequired: adsRequired,
		StartTime:   startTime,
		CreatedAt:   time.Now(),
	}

	if banner, err := c.FormFile("banner"); err == nil {
		key := fmt.Sprintf("banners/%s-%s%s", slug.Make(name), match.ID[:8], utils.BannerExt(banner))
		url, err := utils.UploadBanner(banner, key)
		if err != nil {
			log.Printf("❌ Banner upload failed for match %s: %v", match.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload banner"})
		}
		match.BannerURL = url
	}

	err = ledger.Transact(c.Context(), s.Store, nil, func(txn *ledger.Txn) error {
		txn.Insert(match)
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("🏆 Match %s (%s) created: %s", match.ID, kind, name)
	return c.Status(fiber.StatusCreated).JSON(match)
}

// UpdateMatchEndpoint handles PUT /admin/matches/:id. Capacity can never be
// reduced below current occupancy.
func (s *MatchService) UpdateMatchEndpoint(c *fiber.Ctx) error {
	matchID := c.Params("id")

	var req struct {
		Name        *string `json:"name"`
		EntryFee    *int64  `json:"entry_fee"`
		PrizePool   *int64  `json:"prize_pool"`
		Prize       *int64  `json:"prize"`
		MaxPlayers  *int    `json:"max_players"`
		AdsRequired *int    `json:"ads_required"`
		StartTime   *time.Time `json:"start_time"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var updated *models.Match
	err := ledger.Transact(c.Context(), s.Store, []ledger.Key{ledger.MatchKey(matchID)}, func(txn *ledger.Txn) error {
		match, ok := txn.Match(matchID)
		if !ok {
			return ErrMatchNotFound
		}

		if req.Name != nil {
			match.Name = *req.Name
		}
		if req.EntryFee != nil && match.Kind == models.MatchKindTournament {
			if *req.EntryFee < 0 {
				return ErrNegativeBalance
			}
			match.EntryFee = *req.EntryFee
		}
		if req.PrizePool != nil {
			match.PrizePool = *req.PrizePool
		}
		if req.Prize != nil {
			match.Prize = *req.Prize
		}
		if req.MaxPlayers != nil {
			if *req.MaxPlayers < match.JoinedPlayers {
				return ErrMatchFull
			}
			match.MaxPlayers = *req.MaxPlayers
		}
		if req.AdsRequired != nil && match.Kind == models.MatchKindFree {
			if *req.AdsRequired < 1 {
				return ErrNotFreeMatch
			}
			match.AdsRequired = *req.AdsRequired
		}
		if req.StartTime != nil {
			match.StartTime = *req.StartTime
		}

		txn.Update(ledger.MatchKey(matchID))
		updated = match
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(updated)
}

// SetRoomEndpoint handles PATCH /admin/matches/:id/room, populated close
// to start time.
func (s *MatchService) SetRoomEndpoint(c *fiber.Ctx) error {
	matchID := c.Params("id")

	var req struct {
		RoomID       string `json:"room_id"`
		RoomPassword string `json:"room_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	err := ledger.Transact(c.Context(), s.Store, []ledger.Key{ledger.MatchKey(matchID)}, func(txn *ledger.Txn) error {
		match, ok := txn.Match(matchID)
		if !ok {
			return ErrMatchNotFound
		}
		match.RoomID = req.RoomID
		match.RoomPassword = req.RoomPassword
		txn.Update(ledger.MatchKey(matchID))
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("🔑 Room info set for match %s", matchID)
	return c.JSON(fiber.Map{"message": "Room info updated"})
}

// UpdateStatusEndpoint handles PATCH /admin/matches/:id/status.
func (s *MatchService) UpdateStatusEndpoint(c *fiber.Ctx) error {
	matchID := c.Params("id")

	var req struct {
		Status models.MatchStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	switch req.Status {
	case models.MatchStatusUpcoming, models.MatchStatusLive, models.MatchStatusCompleted, models.MatchStatusArchived:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown status"})
	}

	if err := s.SetStatus(c.Context(), matchID, req.Status); err != nil {
		return respondError(c, err)
	}

	log.Printf("📣 Match %s status → %s", matchID, req.Status)
	return c.JSON(fiber.Map{"message": "Status updated", "status": req.Status})
}

// ArchiveMatchEndpoint handles DELETE /admin/matches/:id (soft delete —
// the match leaves all active listings but its history stays).
func (s *MatchService) ArchiveMatchEndpoint(c *fiber.Ctx) error {
	matchID := c.Params("id")

	if err := s.SetStatus(c.Context(), matchID, models.MatchStatusArchived); err != nil {
		return respondError(c, err)
	}

	log.Printf("🗄️ Match %s archived", matchID)
	return c.JSON(fiber.Map{"message": "Match archived"})
}

// AllMatchesEndpoint handles GET /admin/matches — includes archived.
func (s *MatchService) AllMatchesEndpoint(c *fiber.Ctx) error {
	var matches []models.Match
	if err := s.DB.Order("created_at DESC").Find(&matches).Error; err != nil {
		log.Printf("DB Error fetching all matches: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch matches"})
	}
	return c.JSON(matches)
}
