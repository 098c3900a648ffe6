// routes/member_routes.go
package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/ridelink_backend/controllers"
	"github.com/HSouheill/ridelink_backend/middleware"
	"github.com/HSouheill/ridelink_backend/services"
)

// RegisterMemberRoutes registers the member self-service endpoints
func RegisterMemberRoutes(e *echo.Echo, db *mongo.Client, members services.MemberStore, ledger *services.PointLedger, ranks *services.RankEngine) {
	memberController := controllers.NewMemberController(members, ledger, ranks)

	memberGroup := e.Group("/api/members")
	memberGroup.Use(middleware.JWTMiddleware())
	memberGroup.Use(middleware.ActivityTracker(db))

	memberGroup.GET("/points", memberController.GetPoints)
	memberGroup.GET("/rank", memberController.GetRank)
	memberGroup.POST("/rank/claim", memberController.ClaimRankReward)
	memberGroup.GET("/wallet", memberController.GetWallet)
}
