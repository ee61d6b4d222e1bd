// handlers/wallet_routes.go
package handlers

import (
	"arena-ledger-system/middleware"
	"arena-ledger-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWalletRoutes(app *fiber.App, walletService *services.WalletService, adminService *services.AdminService) {
	// 🔐 Secured routes — require user context
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/wallet/deposits", walletService.CreateDepositEndpoint)
	secured.Post("/wallet/withdrawals", walletService.CreateWithdrawalEndpoint)
	secured.Get("/wallet/requests", walletService.MyRequestsEndpoint)

	// 🛡️ Admin routes — fund request oversight and manual adjustments
	admin := secured.Group("/admin", middleware.RequireAdmin())

	admin.Get("/requests", walletService.PendingRequestsEndpoint)
	admin.Put("/requests/:id/:decision", walletService.ResolveRequestEndpoint)

	admin.Get("/users", adminService.ListUsersEndpoint)
	admin.Post("/users/:id/balances", adminService.AdjustBalancesEndpoint)
	admin.Delete("/users/:id", adminService.DeleteUserEndpoint)
	admin.Get("/stats", adminService.StatsEndpoint)
}
