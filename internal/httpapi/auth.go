package httpapi

import (
	"net/http"
	"strings"
	"time"

	"call-assistant/internal/auth"
	"call-assistant/internal/users"
	"call-assistant/pkg/logger"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h Handlers) Register(c *gin.Context) {
	var req users.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Users.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// Login accepts JSON or a form post (username is an alias of email) and
// returns a token pair. The access token is also set as an HttpOnly cookie.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		email = users.NormalizeEmail(req.Username)
	}
	if email == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	u, err := h.Users.Authenticate(c.Request.Context(), email, req.Password)
	if err != nil {
		logger.FromGin(c).Info("login rejected", "email", email, "err", err)
		fail(c, err)
		return
	}
	h.issue(c, u)
}

// Refresh trades a refresh token for a new pair. The role is re-read from
// the user so promotions and deactivations take effect.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	claims, err := h.Auth.Verify(strings.TrimSpace(req.RefreshToken), auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	u, err := h.Users.Get(c.Request.Context(), claims.UserID)
	if err != nil || !u.IsActive {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	h.issue(c, u)
}

func (h Handlers) Logout(c *gin.Context) {
	auth.ClearSessionCookie(c, h.CookieName, h.CookieSecure)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h Handlers) CurrentUser(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	u, err := h.Users.Get(c.Request.Context(), who.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h Handlers) CreateAdmin(c *gin.Context) {
	var req users.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Users.CreateAdmin(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h Handlers) issue(c *gin.Context, u users.User) {
	pair, err := h.Auth.IssuePair(time.Now(), auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		fail(c, err)
		return
	}
	if h.CookieName != "" {
		auth.SetSessionCookie(c, h.CookieName, pair.AccessToken, h.Auth.AccessTTL(), h.CookieSecure)
	}
	c.JSON(http.StatusOK, pair)
}
