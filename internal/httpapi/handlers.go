package httpapi

import (
	"net/http"
	"strconv"

	"call-assistant/internal/apiconfig"
	"call-assistant/internal/apperrors"
	"call-assistant/internal/auth"
	"call-assistant/internal/businesses"
	"call-assistant/internal/calls"
	"call-assistant/internal/invites"
	"call-assistant/internal/numbers"
	"call-assistant/internal/ratelimit"
	"call-assistant/internal/rbac"
	"call-assistant/internal/reporting"
	"call-assistant/internal/settings"
	"call-assistant/internal/users"
	"call-assistant/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth       *auth.Manager
	Users      *users.Service
	Invites    *invites.Service
	Businesses *businesses.Service
	APIConfigs *apiconfig.Service
	Settings   *settings.Service
	Numbers    *numbers.Service
	Calls      *calls.Service
	Reporting  *reporting.Service

	CookieName   string
	CookieSecure bool

	// LoginLimiter throttles login attempts per client IP. Nil disables it.
	LoginLimiter *ratelimit.Limiter
}

// Mount registers every /api route on api. authMW must inject the caller
// identity (auth.RequireAccessToken).
func (h Handlers) Mount(api *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := api.Group("/auth")
	a.POST("/register", h.Register)
	if h.LoginLimiter != nil {
		a.POST("/login", h.LoginLimiter.Middleware(ratelimit.ByClientIP), h.Login)
	} else {
		a.POST("/login", h.Login)
	}
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
	a.GET("/me", authMW, h.CurrentUser)
	a.POST("/create-admin", authMW, rbac.RequireAdmin(), h.CreateAdmin)

	admin := api.Group("/admin")
	admin.GET("/validate-invite/:token", h.ValidateInvite)
	{
		g := admin.Group("", authMW, rbac.RequireAdmin())
		g.POST("/invite", h.CreateInvite)
		g.GET("/invites", h.ListInvites)
		g.DELETE("/invites/:id", h.CancelInvite)
		g.GET("/statistics", h.Statistics)
	}

	biz := api.Group("/businesses", authMW, rbac.RequireAnyRole(rbac.RoleBusinessOwner))
	biz.POST("", h.CreateBusiness)
	biz.GET("", h.ListBusinesses)
	biz.GET("/:id", h.GetBusiness)
	biz.PUT("/:id", h.UpdateBusiness)
	biz.DELETE("/:id", rbac.RequireAdmin(), h.DeactivateBusiness)

	me := api.Group("/me", authMW, rbac.RequireAnyRole(rbac.RoleBusinessOwner))
	me.GET("/business", h.MyBusiness)
	me.POST("/business", h.CreateMyBusiness)
	me.PUT("/business", h.UpdateMyBusiness)
	me.GET("/api-config", h.GetAPIConfig)
	me.POST("/api-config", h.CreateAPIConfig)
	me.PUT("/api-config", h.UpdateAPIConfig)
	me.GET("/phone-numbers", h.ListNumbers)
	me.GET("/phone-numbers/search", h.SearchNumbers)
	me.POST("/phone-numbers/purchase", h.PurchaseNumber)
	me.DELETE("/phone-numbers/:id", h.ReleaseNumber)
	me.GET("/dashboard", h.Dashboard)
	me.GET("/calls", h.ListCalls)
	me.GET("/calls/:id/events", h.CallEvents)
	me.GET("/settings", h.GetSettings)
	me.POST("/settings", h.CreateSettings)
	me.PUT("/settings", h.UpdateSettings)
}

// fail renders err with the status its sentinel maps to. Internal errors
// are logged and replaced by a generic message.
func fail(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperrors.PublicMessage(err)})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return false
	}
	return true
}

func identity(c *gin.Context) (auth.Identity, bool) {
	id, ok := auth.FromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	}
	return id, ok
}

// business resolves the business a /api/me request targets.
func (h Handlers) business(c *gin.Context) (auth.Identity, businesses.Business, bool) {
	who, ok := identity(c)
	if !ok {
		return who, businesses.Business{}, false
	}
	b, err := h.Businesses.Resolve(c.Request.Context(), who, c.Query("business_id"))
	if err != nil {
		fail(c, err)
		return who, businesses.Business{}, false
	}
	return who, b, true
}

func queryInt(c *gin.Context, key string, def, max int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.Validation("%s must be a non-negative integer", key)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
