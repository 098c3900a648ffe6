// middleware/jwt_middleware.go
package middleware

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/HSouheill/ridelink_backend/config"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// JwtCustomClaims for JWT token
type JwtCustomClaims struct {
	MemberID string `json:"memberId"`
	Email    string `json:"email"`
	UserType string `json:"userType"`
	jwt.StandardClaims
}

// Valid implements the Claims interface for backward compatibility with Echo's JWT middleware
func (c JwtCustomClaims) Valid() error {
	// Check if token is expired (skip check if ExpiresAt is 0)
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return errors.New("token is expired")
	}

	// Check if token is used before valid time
	if c.NotBefore > 0 && time.Now().Unix() < c.NotBefore {
		return errors.New("token used before valid")
	}

	return nil
}

// Add token blacklist
var tokenBlacklist = make(map[string]time.Time)

// CleanupBlacklist periodically removes expired tokens from blacklist
func CleanupBlacklist() {
	for {
		time.Sleep(1 * time.Hour)
		now := time.Now()
		for token, expiry := range tokenBlacklist {
			if now.After(expiry) {
				delete(tokenBlacklist, token)
			}
		}
	}
}

// BlacklistToken adds a token to the blacklist
func BlacklistToken(token string, expiry time.Time) {
	tokenBlacklist[token] = expiry
}

// IsTokenBlacklisted checks if a token is blacklisted
func IsTokenBlacklisted(token string) bool {
	_, exists := tokenBlacklist[token]
	return exists
}

// GetJWTSecret returns the JWT secret from environment variables
func GetJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("JWT_SECRET environment variable is required")
	}
	return secret
}

// GetJWTConfig returns JWT middleware configuration. Every protected route
// goes through this validation: signature, expiry, blacklist, and a live
// check that the member account is still active.
func GetJWTConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		Claims:     &JwtCustomClaims{},
		SigningKey: []byte(GetJWTSecret()),
		SuccessHandler: func(c echo.Context) {
			user := c.Get("user").(*jwt.Token)
			tokenString := user.Raw

			// Check if token is blacklisted
			if IsTokenBlacklisted(tokenString) {
				c.Error(echo.NewHTTPError(echo.ErrUnauthorized.Code, "Token has been invalidated"))
				return
			}

			claims := user.Claims.(*JwtCustomClaims)

			// Verify member is still active so deactivated accounts cannot
			// keep using old tokens. Admin tokens carry no member record.
			if claims.UserType != "admin" && !isMemberActive(claims.MemberID, c) {
				c.Error(echo.NewHTTPError(echo.ErrUnauthorized.Code, "Member account is inactive"))
				return
			}

			c.Set("memberId", claims.MemberID)
			c.Set("userType", claims.UserType)
			c.Set("email", claims.Email)
		},
		ErrorHandler: func(err error) error {
			log.Printf("JWT middleware error: %v", err)
			if err.Error() == "token contains an invalid number of segments" {
				return echo.NewHTTPError(echo.ErrUnauthorized.Code, "Invalid token format")
			}
			return echo.NewHTTPError(echo.ErrUnauthorized.Code, "Please provide valid credentials")
		},
	}
}

// isMemberActive checks if the member is still active in the database
func isMemberActive(memberID string, c echo.Context) bool {
	db, ok := c.Get("db").(*mongo.Client)
	if !ok {
		// No DB in context, skip the check
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(memberID)
	if err != nil {
		return false
	}

	var member struct {
		IsActive bool `bson:"isActive"`
	}

	err = config.GetCollection(db, "members").FindOne(ctx, bson.M{
		"_id": objID,
	}).Decode(&member)

	if err != nil {
		return false
	}

	return member.IsActive
}

// JWTMiddleware returns the JWT middleware every protected group uses
func JWTMiddleware() echo.MiddlewareFunc {
	if os.Getenv("JWT_SECRET") == "" {
		log.Printf("Warning: JWT_SECRET environment variable is not set")
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return echo.NewHTTPError(echo.ErrUnauthorized.Code, "JWT configuration error")
			}
		}
	}

	return middleware.JWTWithConfig(GetJWTConfig())
}

// GenerateJWT generates a new JWT token with refresh token
func GenerateJWT(memberID, email, userType string) (string, string, error) {
	claims := &JwtCustomClaims{
		MemberID: memberID,
		Email:    email,
		UserType: userType,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	refreshClaims := &JwtCustomClaims{
		MemberID: memberID,
		Email:    email,
		UserType: userType,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(30 * 24 * time.Hour).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", "", errors.New("JWT_SECRET environment variable is required")
	}

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}

	refreshTokenString, err := refreshToken.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}

	return tokenString, refreshTokenString, nil
}

// GetMemberFromToken extracts member information from JWT token
func GetMemberFromToken(c echo.Context) *JwtCustomClaims {
	user := c.Get("user")
	if user == nil {
		return nil
	}

	token, ok := user.(*jwt.Token)
	if !ok {
		return nil
	}

	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok {
		return nil
	}

	return claims
}

func ExtractMemberID(c echo.Context) (string, error) {
	user := c.Get("user")
	if user == nil {
		return "", errors.New("invalid token")
	}

	token, ok := user.(*jwt.Token)
	if !ok {
		return "", errors.New("invalid token type")
	}

	// First try to get claims as JwtCustomClaims
	if claims, ok := token.Claims.(*JwtCustomClaims); ok {
		return claims.MemberID, nil
	}

	// Fallback to MapClaims if needed
	if mapClaims, ok := token.Claims.(jwt.MapClaims); ok {
		if memberID, ok := mapClaims["memberId"].(string); ok {
			return memberID, nil
		}
		if memberID, ok := mapClaims["id"].(string); ok {
			return memberID, nil
		}
	}

	return "", errors.New("invalid member ID in token")
}

// ExtractUserType safely extracts the user type from the context
func ExtractUserType(c echo.Context) string {
	// First try to get from context keys
	if userType, ok := c.Get("userType").(string); ok && userType != "" {
		return userType
	}

	// If not found, try from token claims
	claims := GetMemberFromToken(c)
	if claims != nil {
		return claims.UserType
	}

	return ""
}

func GetMemberIDFromToken(c echo.Context) string {
	// First try to get from context keys if already extracted
	if memberID, ok := c.Get("memberId").(string); ok && memberID != "" {
		return memberID
	}

	// If not found in context, try extracting from token claims
	claims := GetMemberFromToken(c)
	if claims != nil {
		return claims.MemberID
	}

	return ""
}

// ActivityTracker middleware updates the member's last activity timestamp
func ActivityTracker(db *mongo.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Skip for unauthenticated routes
			memberID := GetMemberIDFromToken(c)
			if memberID == "" {
				return next(c)
			}

			objID, err := primitive.ObjectIDFromHex(memberID)
			if err != nil {
				return next(c)
			}

			// Update lastActivityAt and isActive in background
			go func() {
				collection := config.GetCollection(db, "members")
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				now := time.Now()
				filter := bson.M{"_id": objID}
				update := bson.M{"$set": bson.M{
					"lastActivityAt": now,
					"isActive":       true,
					"updatedAt":      now,
				}}

				if _, err := collection.UpdateOne(ctx, filter, update); err != nil {
					log.Printf("Failed to update activity for member %s: %v", memberID, err)
				}
			}()

			return next(c)
		}
	}
}
