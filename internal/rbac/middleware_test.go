package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"call-assistant/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveWithRole(role string, guard gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if role != "" {
			ctx := auth.WithIdentity(c.Request.Context(), auth.Identity{UserID: "u", Role: role})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}, guard, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serveWithRole(RoleAdmin, RequireAnyRole(RoleBusinessOwner)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_OwnerAllowed(t *testing.T) {
	if code := serveWithRole(RoleBusinessOwner, RequireAnyRole(RoleBusinessOwner)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAdmin_OwnerDenied(t *testing.T) {
	if code := serveWithRole(RoleBusinessOwner, RequireAdmin()); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_MissingIdentity(t *testing.T) {
	if code := serveWithRole("", RequireAnyRole(RoleBusinessOwner)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestCanAccessBusiness(t *testing.T) {
	cases := []struct {
		role, user, owner string
		want              bool
	}{
		{RoleAdmin, "a", "o", true},
		{RoleBusinessOwner, "o", "o", true},
		{RoleBusinessOwner, "x", "o", false},
		{RoleBusinessOwner, "", "", false},
		{"guest", "o", "o", false},
	}
	for _, tc := range cases {
		if got := CanAccessBusiness(tc.role, tc.user, tc.owner); got != tc.want {
			t.Fatalf("CanAccessBusiness(%q,%q,%q)=%v want %v", tc.role, tc.user, tc.owner, got, tc.want)
		}
	}
}
