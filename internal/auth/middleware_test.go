package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newProtectedRouter(m *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireAccessToken(m, "access_token"), func(c *gin.Context) {
		id, _ := FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "role": id.Role})
	})
	return r
}

func TestRequireAccessToken_HeaderWinsOverCookie(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()
	header, _ := m.IssuePair(now, Identity{UserID: "from-header", Role: "admin"})
	cookie, _ := m.IssuePair(now, Identity{UserID: "from-cookie", Role: "business_owner"})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+header.AccessToken)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: cookie.AccessToken})
	w := httptest.NewRecorder()
	newProtectedRouter(m).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "from-header") {
		t.Fatalf("expected header identity, got %s", body)
	}
}

func TestRequireAccessToken_CookieFallback(t *testing.T) {
	m := newTestManager(t)
	p, _ := m.IssuePair(time.Now(), Identity{UserID: "from-cookie", Role: "business_owner"})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: p.AccessToken})
	w := httptest.NewRecorder()
	newProtectedRouter(m).ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "from-cookie") {
		t.Fatalf("expected cookie identity, got %d %s", w.Code, w.Body.String())
	}
}

func TestRequireAccessToken_InvalidHeaderDoesNotFallBack(t *testing.T) {
	m := newTestManager(t)
	p, _ := m.IssuePair(time.Now(), Identity{UserID: "from-cookie", Role: "business_owner"})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	req.AddCookie(&http.Cookie{Name: "access_token", Value: p.AccessToken})
	w := httptest.NewRecorder()
	newProtectedRouter(m).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when header token is invalid, got %d", w.Code)
	}
}

func TestRequireAccessToken_Missing(t *testing.T) {
	m := newTestManager(t)
	w := httptest.NewRecorder()
	newProtectedRouter(m).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
