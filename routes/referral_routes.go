// routes/referral_routes.go
package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/ridelink_backend/controllers"
	"github.com/HSouheill/ridelink_backend/middleware"
	"github.com/HSouheill/ridelink_backend/services"
)

// RegisterReferralRoutes registers sponsor tree operations
func RegisterReferralRoutes(e *echo.Echo, db *mongo.Client, tree *services.TreeService, members services.MemberStore) {
	referralController := controllers.NewReferralTreeController(db, tree, members)

	referralGroup := e.Group("/api/referrals")
	referralGroup.Use(middleware.JWTMiddleware())
	referralGroup.Use(middleware.ActivityTracker(db))

	referralGroup.POST("/attach", referralController.AttachSponsor)
	referralGroup.POST("/detach", referralController.DetachSponsor)
	referralGroup.GET("/tree", referralController.GetTree)
	referralGroup.GET("/qrcode", referralController.GetReferralQRCode)
}
