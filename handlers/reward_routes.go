// handlers/reward_routes.go
package handlers

import (
	"arena-ledger-system/middleware"
	"arena-ledger-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRewardRoutes(app *fiber.App, rewardService *services.RewardGateService) {
	// 🔐 All reward-gate routes require user context
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/ads/attempts", rewardService.BeginAttemptEndpoint)
	secured.Post("/ads/attempts/:id/confirm", rewardService.ConfirmAttemptEndpoint)
	secured.Delete("/ads/attempts/:id", rewardService.CancelAttemptEndpoint)
}
