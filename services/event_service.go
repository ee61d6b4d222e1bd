package services

import (
	"log"
	"strconv"

	"arena-ledger-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// EventService exposes the ledger event feed as a pull cursor: readers poll
// GET /events?since=<seq> and tolerate eventual visibility of ledger
// writes. This replaces any push/listener surface — the transactional write
// path is the only consistency guarantee the core makes.
type EventService struct {
	DB *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

// PollEndpoint handles GET /events?since=&limit=.
func (s *EventService) PollEndpoint(c *fiber.Ctx) error {
	since, _ := strconv.ParseInt(c.Query("since", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var events []models.LedgerEvent
	if err := s.DB.Where("seq > ?", since).
		Order("seq ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		log.Printf("DB Error fetching events since %d: %v", since, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch events"})
	}

	next := since
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	return c.JSON(fiber.Map{"events": events, "next_since": next})
}

// MyEventsEndpoint handles GET /users/me/events — the caller's own ledger
// history, newest first.
func (s *EventService) MyEventsEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var events []models.LedgerEvent
	if err := s.DB.Where("user_id = ?", userID).
		Order("seq DESC").
		Limit(100).
		Find(&events).Error; err != nil {
		log.Printf("DB Error fetching events for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch events"})
	}

	return c.JSON(events)
}
