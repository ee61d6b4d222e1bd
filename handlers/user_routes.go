// handlers/user_routes.go
package handlers

import (
	"arena-ledger-system/middleware"
	"arena-ledger-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService, eventService *services.EventService) {
	// 🔓 Public routes — no user context, but still require Gateway auth
	app.Get("/leaderboard", userService.LeaderboardEndpoint)
	app.Get("/events", eventService.PollEndpoint)

	// 🔐 Secured routes — require user context (userID, roles)
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/users/init", userService.InitEndpoint)
	secured.Get("/users/me", userService.MeEndpoint)
	secured.Get("/users/me/events", eventService.MyEventsEndpoint)
}
