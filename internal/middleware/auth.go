package middleware

import (
	"context"
	"net/http"
	"strings"

	"vidtube/internal/domain"
	"vidtube/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// UserFetcher is the slice of the user store the gate needs to re-check that
// a token's subject still exists.
type UserFetcher interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// JWTAuth verifies the access token on every protected request and injects
// the resolved identity into the request context. Every failure path returns
// the same 401 payload so callers cannot probe which check rejected them.
// The gate never mutates state.
func JWTAuth(codec *jwt.Codec, users UserFetcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractAccessToken(c)
		if tokenStr == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := codec.Verify(jwt.KindAccess, tokenStr)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		// Re-fetch the record so tokens minted for since-deleted accounts
		// stop working before their TTL runs out.
		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)

		c.Next()
	}
}

// extractAccessToken takes the token from the accessToken cookie or, for
// non-cookie clients, from the Authorization Bearer header.
func extractAccessToken(c *gin.Context) string {
	if cookie, err := c.Cookie("accessToken"); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}

	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": "Authentication required",
		},
	})
}
