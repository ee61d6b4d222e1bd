// handlers/match_routes.go
package handlers

import (
	"arena-ledger-system/middleware"
	"arena-ledger-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService, enrollService *services.EnrollmentService) {
	// 🔓 Public listing routes
	app.Get("/matches", matchService.ListMatchesEndpoint)
	app.Get("/matches/:id", matchService.GetMatchEndpoint)

	// 🔐 Secured routes — require user context
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/matches/:id/join", enrollService.JoinMatchEndpoint)
	secured.Get("/matches/:id/room", matchService.RoomEndpoint)

	// 🛡️ Admin routes
	admin := secured.Group("/admin", middleware.RequireAdmin())

	admin.Get("/matches", matchService.AllMatchesEndpoint)
	admin.Post("/matches", matchService.CreateMatchEndpoint)
	admin.Put("/matches/:id", matchService.UpdateMatchEndpoint)
	admin.Patch("/matches/:id/room", matchService.SetRoomEndpoint)
	admin.Patch("/matches/:id/status", matchService.UpdateStatusEndpoint)
	admin.Delete("/matches/:id", matchService.ArchiveMatchEndpoint)
	admin.Get("/matches/:id/entries", enrollService.MatchEntriesEndpoint)
}
