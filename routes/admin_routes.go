// routes/admin_routes.go
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/ridelink_backend/controllers"
	"github.com/HSouheill/ridelink_backend/middleware"
	"github.com/HSouheill/ridelink_backend/services"
)

// RegisterAdminRoutes registers the plan management and repair endpoints.
// All of them require an admin token.
func RegisterAdminRoutes(e *echo.Echo, plans *services.PlanService, engine *services.RideEngine) {
	planController := controllers.NewCompensationPlanController(plans, engine)

	adminGroup := e.Group("/api/admin")
	adminGroup.Use(middleware.JWTMiddleware())
	adminGroup.Use(middleware.DebugMiddleware())
	adminGroup.Use(middleware.RequireAdmin())

	adminGroup.GET("/plan", planController.GetPlan)
	adminGroup.PUT("/plan", planController.ReplacePlan)
	adminGroup.POST("/plan/normalize", planController.NormalizePlan)
	adminGroup.GET("/plan/balances", planController.GetPoolBalances)
	adminGroup.POST("/wallet/cleanup", planController.CleanupWalletTransactions)
}
