// middleware/jwt_middleware_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func protectedEcho() *echo.Echo {
	e := echo.New()
	g := e.Group("/api/members")
	g.Use(JWTMiddleware())
	g.GET("/points", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"memberId": c.Get("memberId"),
			"userType": c.Get("userType"),
		})
	})
	return e
}

func doRequest(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/members/points", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddlewareSetsClaims(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	memberID := primitive.NewObjectID().Hex()

	token, refreshToken, err := GenerateJWT(memberID, "rider@ridelink.app", "member")
	require.NoError(t, err)
	require.NotEmpty(t, refreshToken)

	rec := doRequest(protectedEcho(), token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), memberID)
	assert.Contains(t, rec.Body.String(), "member")
}

func TestJWTMiddlewareRejectsBlacklistedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, _, err := GenerateJWT(primitive.NewObjectID().Hex(), "rider@ridelink.app", "member")
	require.NoError(t, err)

	e := protectedEcho()
	rec := doRequest(e, token)
	require.Equal(t, http.StatusOK, rec.Code)

	// Logging out blacklists the token; further requests with it fail even
	// though the signature is still valid.
	BlacklistToken(token, time.Now().Add(time.Hour))
	rec = doRequest(e, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsMissingToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	rec := doRequest(protectedEcho(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
