package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vidtube/internal/database"
	"vidtube/internal/middleware"
	"vidtube/internal/pkg/jwt"
	"vidtube/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flowSuite struct {
	router *gin.Engine
	codec  *jwt.Codec
}

type flowResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *flowErrorDetail       `json:"error,omitempty"`
}

type flowErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func setupFlowSuite(t *testing.T) *flowSuite {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err, "Failed to connect to test database")

	userRepo := repository.NewUserRepository(db)
	require.NoError(t, userRepo.Migrate())

	codec := jwt.NewCodec(
		jwt.Profile{Secret: []byte("flow-access-secret"), TTL: 15 * time.Minute},
		jwt.Profile{Secret: []byte("flow-refresh-secret"), TTL: 7 * 24 * time.Hour},
	)

	service := NewService(userRepo, userRepo, codec)
	handler := NewHandler(service, false, "Lax", "/", 15*time.Minute, 7*24*time.Hour)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	handler.RegisterPublicRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(codec, userRepo))
	handler.RegisterProtectedRoutes(protected)

	return &flowSuite{router: router, codec: codec}
}

func (s *flowSuite) request(t *testing.T, method, path string, body interface{}, accessToken string) (*httptest.ResponseRecorder, *flowResponse) {
	t.Helper()

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp flowResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, &resp
}

func (s *flowSuite) registerAndLogin(t *testing.T, username, email, password string) (access, refresh string) {
	t.Helper()

	w, _ := s.request(t, "POST", "/api/v1/auth/register", gin.H{
		"full_name": "Alice Doe",
		"username":  username,
		"email":     email,
		"password":  password,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	return s.login(t, username, password)
}

func (s *flowSuite) login(t *testing.T, username, password string) (access, refresh string) {
	t.Helper()

	w, resp := s.request(t, "POST", "/api/v1/auth/login", gin.H{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	tokens := resp.Data["tokens"].(map[string]interface{})
	return tokens["access_token"].(string), tokens["refresh_token"].(string)
}

func (s *flowSuite) refresh(t *testing.T, refreshToken string) (*httptest.ResponseRecorder, *flowResponse) {
	t.Helper()
	return s.request(t, "POST", "/api/v1/auth/refresh", gin.H{"refreshToken": refreshToken}, "")
}

func TestFlow_LoginRefreshRotation(t *testing.T) {
	suite := setupFlowSuite(t)

	a1, r1 := suite.registerAndLogin(t, "alice", "alice@example.com", "pw1-alice")

	// Protected endpoint with A1 resolves to alice.
	w, resp := suite.request(t, "GET", "/api/v1/users/me", nil, a1)
	require.Equal(t, http.StatusOK, w.Code)
	user := resp.Data["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])

	// Refresh with R1 yields a new pair.
	w, resp = suite.refresh(t, r1)
	require.Equal(t, http.StatusOK, w.Code)
	tokens := resp.Data["tokens"].(map[string]interface{})
	a2 := tokens["access_token"].(string)
	r2 := tokens["refresh_token"].(string)
	assert.NotEqual(t, r1, r2)
	assert.NotEmpty(t, a2)

	// R1 was rotated away: a second refresh with it must fail even though
	// its signature still verifies.
	_, err := suite.codec.Verify(jwt.KindRefresh, r1)
	require.NoError(t, err)
	w, resp = suite.refresh(t, r1)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", resp.Error.Code)

	// Access tokens are not invalidated by rotation; A1 works until its TTL.
	w, _ = suite.request(t, "GET", "/api/v1/users/me", nil, a1)
	assert.Equal(t, http.StatusOK, w.Code)

	// R2 is the current slot value and still rotates fine.
	w, _ = suite.refresh(t, r2)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFlow_SecondLoginSupersedesFirst(t *testing.T) {
	suite := setupFlowSuite(t)

	_, r1 := suite.registerAndLogin(t, "alice", "alice@example.com", "pw1-alice")
	_, r2 := suite.login(t, "alice", "pw1-alice")

	// The first login's refresh token was overwritten by the second.
	w, _ := suite.refresh(t, r1)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = suite.refresh(t, r2)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFlow_LogoutClearsSlot(t *testing.T) {
	suite := setupFlowSuite(t)

	access, refresh := suite.registerAndLogin(t, "alice", "alice@example.com", "pw1-alice")

	w, _ := suite.request(t, "POST", "/api/v1/auth/logout", nil, access)
	require.Equal(t, http.StatusOK, w.Code)

	// The just-cleared token is rejected.
	w, resp := suite.refresh(t, refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", resp.Error.Code)

	// Logout is idempotent while the access token is still within TTL.
	w, _ = suite.request(t, "POST", "/api/v1/auth/logout", nil, access)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFlow_RegisterValidation(t *testing.T) {
	suite := setupFlowSuite(t)

	w, resp := suite.request(t, "POST", "/api/v1/auth/register", gin.H{
		"full_name": "Alice Doe",
		"username":  "al",
		"email":     "not-an-email",
		"password":  "short",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestFlow_LoginByEmail(t *testing.T) {
	suite := setupFlowSuite(t)
	suite.registerAndLogin(t, "alice", "alice@example.com", "pw1-alice")

	w, resp := suite.request(t, "POST", "/api/v1/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "pw1-alice",
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	user := resp.Data["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
}

func TestFlow_LoginMissingIdentifier(t *testing.T) {
	suite := setupFlowSuite(t)

	w, resp := suite.request(t, "POST", "/api/v1/auth/login", gin.H{
		"password": "pw1-alice",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestFlow_LoginSetsAuthCookies(t *testing.T) {
	suite := setupFlowSuite(t)

	w, _ := suite.request(t, "POST", "/api/v1/auth/register", gin.H{
		"full_name": "Alice Doe",
		"username":  "alice",
		"email":     "alice@example.com",
		"password":  "pw1-alice",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = suite.request(t, "POST", "/api/v1/auth/login", gin.H{
		"username": "alice",
		"password": "pw1-alice",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var names []string
	for _, c := range w.Result().Cookies() {
		names = append(names, c.Name)
		assert.True(t, c.HttpOnly, "cookie %s must be http-only", c.Name)
	}
	assert.Contains(t, names, "accessToken")
	assert.Contains(t, names, "refreshToken")
}

func TestFlow_RefreshFromCookie(t *testing.T) {
	suite := setupFlowSuite(t)

	_, refresh := suite.registerAndLogin(t, "alice", "alice@example.com", "pw1-alice")

	req := httptest.NewRequest("POST", "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh})
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFlow_ChangePassword(t *testing.T) {
	suite := setupFlowSuite(t)

	access, _ := suite.registerAndLogin(t, "alice", "alice@example.com", "pw1-alice")

	w, _ := suite.request(t, "POST", "/api/v1/users/change-password", gin.H{
		"old_password": "pw1-alice",
		"new_password": "pw2-secure",
	}, access)
	require.Equal(t, http.StatusOK, w.Code)

	// Old password no longer works, new one does.
	w, _ = suite.request(t, "POST", "/api/v1/auth/login", gin.H{
		"username": "alice",
		"password": "pw1-alice",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	suite.login(t, "alice", "pw2-secure")
}
