package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vidtube/internal/domain"
	"vidtube/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubUserFetcher struct {
	users map[int64]*domain.User
}

func (s stubUserFetcher) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testGateCodec() *jwt.Codec {
	return jwt.NewCodec(
		jwt.Profile{Secret: []byte("gate-access-secret"), TTL: time.Hour},
		jwt.Profile{Secret: []byte("gate-refresh-secret"), TTL: time.Hour},
	)
}

func newGateRouter(t *testing.T, codec *jwt.Codec, users UserFetcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuth(codec, users))
	router.GET("/protected", func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

func TestJWTAuth_ValidBearerToken(t *testing.T) {
	codec := testGateCodec()
	users := stubUserFetcher{users: map[int64]*domain.User{
		42: {ID: 42, Username: "alice"},
	}}

	token, err := codec.Mint(jwt.KindAccess, 42, map[string]string{"username": "alice"})
	require.NoError(t, err)

	router := newGateRouter(t, codec, users)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
}

func TestJWTAuth_ValidCookieToken(t *testing.T) {
	codec := testGateCodec()
	users := stubUserFetcher{users: map[int64]*domain.User{
		42: {ID: 42, Username: "alice"},
	}}

	token, err := codec.Mint(jwt.KindAccess, 42, nil)
	require.NoError(t, err)

	router := newGateRouter(t, codec, users)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuth_NoToken(t *testing.T) {
	router := newGateRouter(t, testGateCodec(), stubUserFetcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestJWTAuth_GarbageToken(t *testing.T) {
	router := newGateRouter(t, testGateCodec(), stubUserFetcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestJWTAuth_RefreshTokenRejected(t *testing.T) {
	codec := testGateCodec()
	users := stubUserFetcher{users: map[int64]*domain.User{
		42: {ID: 42},
	}}

	// A refresh token must never pass the access gate, whatever its
	// signature status.
	refresh, err := codec.Mint(jwt.KindRefresh, 42, nil)
	require.NoError(t, err)

	router := newGateRouter(t, codec, users)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_DeletedUser(t *testing.T) {
	codec := testGateCodec()

	token, err := codec.Mint(jwt.KindAccess, 42, nil)
	require.NoError(t, err)

	// Token is fine but the record is gone: the gate re-fetch rejects it.
	router := newGateRouter(t, codec, stubUserFetcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}
