package services

import (
	"errors"
	"log"

	"arena-ledger-system/ledger"

	"github.com/gofiber/fiber/v2"
)

// Business rejections. None of these is ever retried; each maps to a
// distinct reported outcome so clients can tell "this action is invalid"
// from "try again" (ledger.ErrTransient).
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrMatchNotFound   = errors.New("match not found")
	ErrRequestNotFound = errors.New("request not found")
	ErrAttemptNotFound = errors.New("attempt not found")

	ErrMatchFull            = errors.New("match is full")
	ErrMatchClosed          = errors.New("match is not open for joining")
	ErrAlreadyJoined        = errors.New("already joined this match")
	ErrInsufficientBalance  = errors.New("insufficient wallet balance")
	ErrInsufficientWinnings = errors.New("insufficient winnings balance")
	ErrAmountBelowMinimum   = errors.New("amount is below the configured minimum")
	ErrRequestNotPending    = errors.New("request is not pending")
	ErrDailyCapReached      = errors.New("daily ad limit reached")
	ErrNotFreeMatch         = errors.New("match is not ad-gated")
	ErrAttemptFinished      = errors.New("attempt already finished")
	ErrNegativeBalance      = errors.New("adjustment would make a balance negative")
	ErrNotJoined            = errors.New("user has not joined this match")
	ErrAdUnavailable        = errors.New("ad confirmation unavailable")
)

// respondError maps the error taxonomy onto HTTP responses.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrMatchNotFound),
		errors.Is(err, ErrRequestNotFound),
		errors.Is(err, ErrAttemptNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, ErrMatchFull),
		errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrRequestNotPending),
		errors.Is(err, ErrAttemptFinished),
		errors.Is(err, ErrMatchClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInsufficientWinnings),
		errors.Is(err, ErrAmountBelowMinimum),
		errors.Is(err, ErrNegativeBalance),
		errors.Is(err, ErrNotFreeMatch),
		errors.Is(err, ErrNotJoined):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, ErrDailyCapReached):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, ErrAdUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, ledger.ErrTransient):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "ledger busy, please retry"})
	}

	log.Printf("❌ Unhandled service error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
