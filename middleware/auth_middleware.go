// middleware/auth_middleware.go
package middleware

import (
	"net/http"

	"github.com/HSouheill/ridelink_backend/models"
	"github.com/labstack/echo/v4"
)

// RequireUserType checks if the authenticated member has one of the allowed user types
func RequireUserType(allowedTypes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userType := ExtractUserType(c)

			// If no user type found, deny access
			if userType == "" {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Authentication failed: user type not found",
				})
			}

			// Check if user type is allowed
			for _, allowedType := range allowedTypes {
				if userType == allowedType {
					return next(c)
				}
			}

			c.Logger().Errorf("Access denied for user type: %s, allowed types: %v", userType, allowedTypes)
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Access denied for your user type",
			})
		}
	}
}

// RequireAdmin restricts a route to admin accounts. Plan edits and the
// wallet cleanup job go through this.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireUserType("admin")
}

// DebugMiddleware prints token info for debugging
func DebugMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := GetMemberFromToken(c)
			if claims != nil {
				c.Logger().Infof("Member ID: %s, User Type: %s, Email: %s",
					claims.MemberID, claims.UserType, claims.Email)
			} else {
				c.Logger().Info("No member claims found")
			}
			return next(c)
		}
	}
}
