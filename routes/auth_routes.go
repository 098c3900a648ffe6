// routes/auth_routes.go
package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/ridelink_backend/controllers"
	"github.com/HSouheill/ridelink_backend/middleware"
)

// RegisterAuthRoutes registers admin login and logout
func RegisterAuthRoutes(e *echo.Echo, db *mongo.Client) {
	authController := controllers.NewAuthController(db)

	e.POST("/api/admin/login", authController.AdminLogin)

	authGroup := e.Group("/api/auth")
	authGroup.Use(middleware.JWTMiddleware())
	authGroup.POST("/logout", authController.Logout)
}
