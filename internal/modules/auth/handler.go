package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"vidtube/internal/domain"
	"vidtube/internal/pkg/response"
	"vidtube/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service        *Service
	cookieSecure   bool
	cookieSameSite string
	cookiePath     string
	accessTTL      time.Duration
	refreshTTL     time.Duration
}

// NewHandler creates a new auth handler with injected service
func NewHandler(service *Service, cookieSecure bool, cookieSameSite, cookiePath string, accessTTL, refreshTTL time.Duration) *Handler {
	return &Handler{
		service:        service,
		cookieSecure:   cookieSecure,
		cookieSameSite: cookieSameSite,
		cookiePath:     cookiePath,
		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
	}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.POST("/auth/logout", h.Logout)

	userGroup := protected.Group("/users")
	{
		userGroup.GET("/me", h.GetMe)
		userGroup.PATCH("/me", h.UpdateAccount)
		userGroup.POST("/change-password", h.ChangePassword)
	}
}

// Register creates a new user account.
// @Summary		Register user
// @Description	Creates a new account from fullname, email, username and password.
// @Tags		Auth
// @Accept		json
// @Produce		json
// @Param		body	body	RegisterRequest	true	"payload"
// @Success		201	{object}		map[string]interface{}
// @Failure		409	{object}		map[string]interface{}
// @Failure		422	{object}		map[string]interface{}
// @Router		/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	if details := validator.Validate(&req); details != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request failed validation", details)
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			response.Error(c, http.StatusConflict, "USER_EXISTS", "Username or email is already registered")
			return
		}
		response.Error(c, http.StatusInternalServerError, "REGISTRATION_FAILED", "Failed to register user")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"user": toUserPublic(user),
	})
}

// Login authenticates by username or email and issues a token pair.
// @Summary		Login
// @Description	Verifies credentials and returns an access/refresh token pair. The pair is also set as http-only cookies.
// @Tags		Auth
// @Accept		json
// @Produce		json
// @Param		body	body	LoginRequest	true	"payload"
// @Success		200	{object}		map[string]interface{}
// @Failure		401	{object}		map[string]interface{}
// @Router		/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingIdentifier):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Username or email is required")
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidCredentials):
			// Same payload for both so the API does not confirm whether the
			// account exists.
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Username/email or password is incorrect")
		default:
			response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		}
		return
	}

	h.setAuthCookies(c, result.Tokens)

	// Tokens are echoed in the body for non-cookie clients.
	response.Success(c, http.StatusOK, gin.H{
		"user": toUserPublic(result.User),
		"tokens": gin.H{
			"access_token":  result.Tokens.AccessToken,
			"refresh_token": result.Tokens.RefreshToken,
		},
	})
}

// Refresh rotates the refresh token and returns a new pair.
// @Summary		Refresh tokens
// @Description	Accepts the refresh token from the cookie or the request body and, if it is the current one for its user, issues a new pair.
// @Tags		Auth
// @Produce		json
// @Success		200	{object}		map[string]interface{}
// @Failure		401	{object}		map[string]interface{}
// @Router		/auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	presented := h.extractRefreshToken(c)
	if presented == "" {
		response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is missing or invalid")
		return
	}

	pair, err := h.service.Refresh(c.Request.Context(), presented)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRefreshToken), errors.Is(err, ErrRefreshTokenReused):
			// Reuse is logged inside the service; externally both cases look
			// identical.
			response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is missing or invalid")
		default:
			response.Error(c, http.StatusInternalServerError, "REFRESH_FAILED", "Failed to refresh session")
		}
		return
	}

	h.setAuthCookies(c, *pair)

	response.Success(c, http.StatusOK, gin.H{
		"tokens": gin.H{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
		},
	})
}

// Logout ends the current session.
// @Summary		Logout
// @Description	Clears the stored refresh token and both auth cookies.
// @Tags		Auth
// @Security	BearerAuth
// @Success		200	{object}		map[string]interface{}
// @Router		/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	if err := h.service.Logout(c.Request.Context(), userIDAny.(int64)); err != nil {
		response.Error(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to logout")
		return
	}

	h.clearAuthCookies(c)
	response.Success(c, http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetMe returns the profile of the authenticated user.
// @Summary		Current user
// @Tags		Users
// @Security	BearerAuth
// @Success		200	{object}		map[string]interface{}
// @Router		/users/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	user, err := h.service.GetCurrentUser(c.Request.Context(), userIDAny.(int64))
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user": toUserPublic(user),
	})
}

// UpdateAccount updates fullname and email of the authenticated user.
// @Summary		Update account details
// @Tags		Users
// @Security	BearerAuth
// @Param		body	body	UpdateAccountRequest	true	"payload"
// @Success		200	{object}		map[string]interface{}
// @Router		/users/me [patch]
func (h *Handler) UpdateAccount(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	if details := validator.Validate(&req); details != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request failed validation", details)
		return
	}

	user, err := h.service.UpdateAccount(c.Request.Context(), userID.(int64), req)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Could not update account")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user": toUserPublic(user),
	})
}

// ChangePassword re-verifies the old password and stores a new hash.
// @Summary		Change password
// @Tags		Users
// @Security	BearerAuth
// @Param		body	body	ChangePasswordRequest	true	"payload"
// @Success		200	{object}		map[string]interface{}
// @Router		/users/change-password [post]
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	if details := validator.Validate(&req); details != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request failed validation", details)
		return
	}

	err := h.service.ChangePassword(c.Request.Context(), userID.(int64), req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusBadRequest, "INVALID_OLD_PASSWORD", "Old password is incorrect")
			return
		}
		response.Error(c, http.StatusInternalServerError, "PASSWORD_CHANGE_FAILED", "Failed to change password")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Password updated successfully",
	})
}

func (h *Handler) extractRefreshToken(c *gin.Context) string {
	if cookie, err := c.Cookie("refreshToken"); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return strings.TrimSpace(req.RefreshToken)
}

func (h *Handler) setAuthCookies(c *gin.Context, pair TokenPair) {
	c.SetSameSite(parseSameSite(h.cookieSameSite))
	c.SetCookie("accessToken", pair.AccessToken, int(h.accessTTL.Seconds()), h.cookiePath, "", h.cookieSecure, true)
	c.SetCookie("refreshToken", pair.RefreshToken, int(h.refreshTTL.Seconds()), h.cookiePath, "", h.cookieSecure, true)
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(parseSameSite(h.cookieSameSite))
	c.SetCookie("accessToken", "", -1, h.cookiePath, "", h.cookieSecure, true)
	c.SetCookie("refreshToken", "", -1, h.cookiePath, "", h.cookieSecure, true)
}

func toUserPublic(u *domain.User) UserPublic {
	return UserPublic{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
	}
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
