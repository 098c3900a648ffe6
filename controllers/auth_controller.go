// controllers/auth_controller.go
package controllers

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/ridelink_backend/config"
	"github.com/HSouheill/ridelink_backend/middleware"
	"github.com/HSouheill/ridelink_backend/models"
)

// AuthController handles admin login and token invalidation. Members
// authenticate on the main platform; this service only issues admin tokens
// for the plan management endpoints.
type AuthController struct {
	db *mongo.Client
}

func NewAuthController(db *mongo.Client) *AuthController {
	return &AuthController{db: db}
}

// AdminLoginRequest is the admin credential payload.
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminLogin checks the admin credentials from .env and issues a token pair
func (ac *AuthController) AdminLogin(c echo.Context) error {
	var req AdminLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email and password are required",
		})
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Printf("Admin login attempted but ADMIN_EMAIL/ADMIN_PASSWORD are not configured")
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid admin credentials",
		})
	}

	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(adminEmail)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(adminPassword)) == 1
	if !emailOK || !passwordOK {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid admin credentials",
		})
	}

	token, refreshToken, err := middleware.GenerateJWT("admin", req.Email, "admin")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Admin login successful",
		Data: map[string]interface{}{
			"token":        token,
			"refreshToken": refreshToken,
			"user": map[string]interface{}{
				"email": req.Email,
				"role":  "admin",
			},
		},
	})
}

// Logout blacklists the caller's token until its natural expiry
func (ac *AuthController) Logout(c echo.Context) error {
	user, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}
	claims, ok := user.Claims.(*middleware.JwtCustomClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token claims",
		})
	}

	now := time.Now()
	tokenExpiry := now.Add(24 * time.Hour)
	if claims.ExpiresAt > 0 {
		tokenExpiry = time.Unix(claims.ExpiresAt, 0)
	}
	middleware.BlacklistToken(user.Raw, tokenExpiry)

	// Member logouts also clear the active flag; admin tokens have no
	// member record behind them.
	if objID, err := primitive.ObjectIDFromHex(claims.MemberID); err == nil && ac.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		update := bson.M{"$set": bson.M{
			"isActive":     false,
			"lastLogoutAt": now,
			"updatedAt":    now,
		}}
		if _, err := config.GetCollection(ac.db, "members").UpdateOne(ctx, bson.M{"_id": objID}, update); err != nil {
			// The token is already blacklisted; a failed flag update must
			// not fail the logout.
			log.Printf("Failed to update logout status for member %s: %v", claims.MemberID, err)
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Logged out successfully",
	})
}
