package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"call-assistant/internal/apiconfig"
	"call-assistant/internal/audit"
	"call-assistant/internal/auth"
	"call-assistant/internal/businesses"
	"call-assistant/internal/calls"
	"call-assistant/internal/config"
	"call-assistant/internal/invites"
	"call-assistant/internal/numbers"
	"call-assistant/internal/ratelimit"
	"call-assistant/internal/reporting"
	"call-assistant/internal/settings"
	"call-assistant/internal/telephony"
	"call-assistant/internal/users"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testCookie   = "access_token"
	testPassword = "correct-horse-battery"
)

type nopMailer struct{}

func (nopMailer) SendInvite(ctx context.Context, to, role, registerURL string) error { return nil }

// callTotals aggregates straight from the call service so dashboard tests
// share one in-memory store.
type callTotals struct{ calls *calls.Service }

func (t callTotals) CallTotals(ctx context.Context, businessID string, r reporting.TimeRange) (reporting.Totals, error) {
	list, err := t.calls.List(ctx, businessID, calls.ListFilter{From: r.From, To: r.To})
	if err != nil {
		return reporting.Totals{}, err
	}
	return reporting.Summarize(list), nil
}

type fixture struct {
	t        *testing.T
	r        *gin.Engine
	h        Handlers
	calls    *calls.MemoryRepo
	provider *telephony.SandboxProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		JWTIssuer:       "call-assistant",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	userRepo := users.NewMemoryRepo()
	inviteSvc := invites.NewService(invites.NewMemoryRepo(), users.NewDirectory(userRepo), nopMailer{}, "https://app.example.com")
	userSvc := users.NewService(userRepo, inviteSvc, nil, bcrypt.MinCost)
	bizSvc := businesses.NewService(businesses.NewMemoryRepo())
	callRepo := calls.NewMemoryRepo()
	callSvc := calls.NewService(callRepo, audit.NewService(audit.NewMemoryRepo()), nil)
	provider := telephony.NewSandboxProvider()

	h := Handlers{
		Auth:         m,
		Users:        userSvc,
		Invites:      inviteSvc,
		Businesses:   bizSvc,
		APIConfigs:   apiconfig.NewService(apiconfig.NewMemoryRepo(), "alloy", "gpt-4o-realtime-preview"),
		Settings:     settings.NewService(settings.NewMemoryRepo()),
		Numbers:      numbers.NewService(numbers.NewMemoryRepo(), provider, "https://hooks.example.com"),
		Calls:        callSvc,
		Reporting:    reporting.NewService(callTotals{callSvc}, callSvc, userSvc, bizSvc, inviteSvc),
		CookieName:   testCookie,
		LoginLimiter: ratelimit.New("login", 100, 100),
	}
	r := gin.New()
	h.Mount(r.Group("/api"), auth.RequireAccessToken(m, testCookie))
	return &fixture{t: t, r: r, h: h, calls: callRepo, provider: provider}
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func (f *fixture) token(u users.User) string {
	f.t.Helper()
	p, err := f.h.Auth.IssuePair(time.Now(), auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	require.NoError(f.t, err)
	return p.AccessToken
}

func (f *fixture) admin() (users.User, string) {
	u, err := f.h.Users.CreateAdmin(context.Background(), users.RegisterInput{Email: gofakeit.Email(), Password: testPassword})
	require.NoError(f.t, err)
	return u, f.token(u)
}

func (f *fixture) owner() (users.User, string) {
	u, err := f.h.Users.Register(context.Background(), users.RegisterInput{Email: gofakeit.Email(), Password: testPassword, FirstName: gofakeit.FirstName()})
	require.NoError(f.t, err)
	return u, f.token(u)
}

func (f *fixture) ownerWithBusiness() (users.User, string, businesses.Business) {
	u, tok := f.owner()
	w := f.do(http.MethodPost, "/api/me/business", tok, map[string]any{
		"business_name": gofakeit.Company(),
		"owner_phone":   "(415) 555-0111",
	})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	var b businesses.Business
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &b))
	return u, tok, b
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestLogin_JSONSetsCookie(t *testing.T) {
	f := newFixture(t)
	u, _ := f.owner()

	w := f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": strings.ToUpper(u.Email), "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pair := decode[auth.TokenPair](t, w)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: session.Value})
	me := httptest.NewRecorder()
	f.r.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, u.ID, decode[users.User](t, me).ID)
}

func TestLogin_FormAndWrongPassword(t *testing.T) {
	f := newFixture(t)
	u, _ := f.owner()

	form := url.Values{"username": {u.Email}, "password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": u.Email, "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid email or password")
}

func TestLogin_RateLimited(t *testing.T) {
	f := newFixture(t)
	f.h.LoginLimiter = ratelimit.New("login", 0.001, 1)
	r := gin.New()
	f.h.Mount(r.Group("/api"), auth.RequireAccessToken(f.h.Auth, testCookie))
	f.r = r

	body := map[string]string{"email": "x@example.com", "password": "whatever1"}
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/auth/login", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/api/auth/login", "", body).Code)
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	f := newFixture(t)
	u, _ := f.owner()
	pair, err := f.h.Auth.IssuePair(time.Now(), auth.Identity{UserID: u.ID, Role: u.Role})
	require.NoError(t, err)

	w := f.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": pair.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "access tokens cannot refresh")
}

func TestLogout_ClearsCookie(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), testCookie+"=;")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	body := map[string]string{"email": "dup@example.com", "password": testPassword}
	w := f.do(http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "business_owner", decode[users.User](t, w).Role)
	assert.NotContains(t, w.Body.String(), "hashed")

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/auth/register", "", body).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "bad"}).Code)
}

func TestInviteFlow(t *testing.T) {
	f := newFixture(t)
	_, adminTok := f.admin()

	w := f.do(http.MethodPost, "/api/admin/invite", adminTok, map[string]string{"email": "New.Admin@example.com", "role": "admin"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	list, err := f.h.Invites.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	token := list[0].Token

	w = f.do(http.MethodGet, "/api/admin/invites", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), token)

	w = f.do(http.MethodGet, "/api/admin/validate-invite/"+token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new.admin@example.com", decode[map[string]any](t, w)["email"])

	w = f.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "new.admin@example.com", "password": testPassword, "invite_token": token,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "admin", decode[users.User](t, w).Role)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/admin/validate-invite/"+token, "", nil).Code)
}

func TestInvite_CancelAndDuplicate(t *testing.T) {
	f := newFixture(t)
	_, adminTok := f.admin()
	owner, _ := f.owner()

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/admin/invite", adminTok, map[string]string{"email": owner.Email}).Code)

	w := f.do(http.MethodPost, "/api/admin/invite", adminTok, map[string]string{"email": "later@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]any](t, w)["id"].(string)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/admin/invite", adminTok, map[string]string{"email": "later@example.com"}).Code)

	assert.Equal(t, http.StatusOK, f.do(http.MethodDelete, "/api/admin/invites/"+id, adminTok, nil).Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodDelete, "/api/admin/invites/"+id, adminTok, nil).Code)
}

func TestAdminRoutes_ForbiddenForOwners(t *testing.T) {
	f := newFixture(t)
	_, tok := f.owner()

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/admin/invites", tok, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/auth/create-admin", tok, map[string]string{"email": "a@b.co", "password": testPassword}).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/admin/statistics", "", nil).Code)
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	_, adminTok := f.admin()
	f.ownerWithBusiness()
	f.ownerWithBusiness()
	f.do(http.MethodPost, "/api/admin/invite", adminTok, map[string]string{"email": "pending@example.com"})

	w := f.do(http.MethodGet, "/api/admin/statistics", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[reporting.Statistics](t, w)
	assert.Equal(t, reporting.Statistics{TotalUsers: 3, TotalBusinesses: 2, ActiveBusinesses: 2, PendingInvites: 1}, st)
}

func TestBusinesses_OwnershipRules(t *testing.T) {
	f := newFixture(t)
	_, tokA, bizA := f.ownerWithBusiness()
	_, tokB, _ := f.ownerWithBusiness()
	_, adminTok := f.admin()

	assert.Equal(t, "+14155550111", bizA.OwnerPhone)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/businesses", tokA, map[string]string{"business_name": "Second"}).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/businesses/"+bizA.ID, tokA, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/businesses/"+bizA.ID, tokB, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPut, "/api/businesses/"+bizA.ID, tokB, map[string]string{"industry": "x"}).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodDelete, "/api/businesses/"+bizA.ID, tokA, nil).Code)

	w := f.do(http.MethodGet, "/api/businesses", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]businesses.Business](t, w), 2)

	w = f.do(http.MethodDelete, "/api/businesses/"+bizA.ID, adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[businesses.Business](t, w).IsActive)
}

func TestMe_AdminNeedsBusinessID(t *testing.T) {
	f := newFixture(t)
	_, _, biz := f.ownerWithBusiness()
	_, adminTok := f.admin()

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/me/business", adminTok, nil).Code)
	w := f.do(http.MethodGet, "/api/me/business?business_id="+biz.ID, adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, biz.ID, decode[businesses.Business](t, w).ID)
}

func TestMe_APIConfigIsMasked(t *testing.T) {
	f := newFixture(t)
	_, tok, _ := f.ownerWithBusiness()

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/me/api-config", tok, nil).Code)
	w := f.do(http.MethodPost, "/api/me/api-config", tok, map[string]string{"api_key": "sk-live-1234567890", "instructions": "Be brief."})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "sk-live")

	w = f.do(http.MethodGet, "/api/me/api-config", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cfg := decode[apiconfig.Config](t, w)
	assert.Equal(t, apiconfig.MaskedKey, cfg.APIKey)
	assert.Equal(t, "alloy", cfg.Voice)
}

func TestMe_PhoneNumberLifecycle(t *testing.T) {
	f := newFixture(t)
	_, tok, biz := f.ownerWithBusiness()

	w := f.do(http.MethodGet, "/api/me/phone-numbers/search?area_code=212", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	found := decode[[]telephony.AvailableNumber](t, w)
	require.NotEmpty(t, found)

	w = f.do(http.MethodPost, "/api/me/phone-numbers/purchase", tok, map[string]string{"phone_number": found[0].PhoneNumber})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	n := decode[numbers.PhoneNumber](t, w)
	assert.Equal(t, biz.ID, n.BusinessID)
	assert.True(t, f.provider.Owns(n.PhoneNumber))

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/me/phone-numbers/purchase", tok, map[string]string{"phone_number": found[1].PhoneNumber}).Code)

	assert.Equal(t, http.StatusOK, f.do(http.MethodDelete, "/api/me/phone-numbers/"+n.ID, tok, nil).Code)
	assert.False(t, f.provider.Owns(n.PhoneNumber))

	w = f.do(http.MethodGet, "/api/me/phone-numbers", tok, nil)
	list := decode[[]numbers.PhoneNumber](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, numbers.StatusInactive, list[0].Status)
}

func TestMe_PhoneNumberOfAnotherBusiness(t *testing.T) {
	f := newFixture(t)
	_, tokA, _ := f.ownerWithBusiness()
	_, tokB, _ := f.ownerWithBusiness()

	w := f.do(http.MethodPost, "/api/me/phone-numbers/purchase", tokA, map[string]string{"phone_number": "+12125550100"})
	require.Equal(t, http.StatusCreated, w.Code)
	n := decode[numbers.PhoneNumber](t, w)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/me/phone-numbers/"+n.ID, tokB, nil).Code)
}

func TestMe_DashboardAndCalls(t *testing.T) {
	f := newFixture(t)
	_, tok, biz := f.ownerWithBusiness()
	_, _, other := f.ownerWithBusiness()

	ctx := context.Background()
	now := time.Now().UTC()
	seed := []calls.Call{
		{ID: "c1", BusinessID: biz.ID, TwilioCallSID: "CA1", Type: calls.CallTypeHuman, Status: calls.CallStatusCompleted, DurationSeconds: intp(30), Cost: floatp(1), StartTime: now.Add(-3 * time.Minute)},
		{ID: "c2", BusinessID: biz.ID, TwilioCallSID: "CA2", Type: calls.CallTypeAI, Status: calls.CallStatusCompleted, DurationSeconds: intp(60), Cost: floatp(2), StartTime: now.Add(-2 * time.Minute)},
		{ID: "c3", BusinessID: biz.ID, TwilioCallSID: "CA3", Type: calls.CallTypeAI, Status: calls.CallStatusCompleted, DurationSeconds: intp(90), Cost: floatp(3), StartTime: now.Add(-time.Minute)},
		{ID: "x1", BusinessID: other.ID, TwilioCallSID: "CA9", Type: calls.CallTypeAI, Status: calls.CallStatusCompleted, DurationSeconds: intp(500), StartTime: now},
	}
	for _, c := range seed {
		require.NoError(t, f.calls.Create(ctx, c))
	}

	w := f.do(http.MethodGet, "/api/me/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	d := decode[map[string]any](t, w)
	assert.EqualValues(t, 3, d["total_calls"])
	assert.EqualValues(t, 1, d["human_calls"])
	assert.EqualValues(t, 2, d["ai_calls"])
	assert.EqualValues(t, 60, d["average_duration"])
	assert.EqualValues(t, 6, d["total_cost"])
	assert.Len(t, d["recent_calls"], 3)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/me/dashboard?from=yesterday", tok, nil).Code)

	w = f.do(http.MethodGet, "/api/me/calls?limit=2", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]calls.Call](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, "c3", list[0].ID)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/me/calls/c1/events", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/me/calls/x1/events", tok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/me/calls?limit=-1", tok, nil).Code)
}

func TestMe_Settings(t *testing.T) {
	f := newFixture(t)
	_, tok, _ := f.ownerWithBusiness()

	w := f.do(http.MethodGet, "/api/me/settings", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st := decode[settings.Settings](t, w)
	assert.Equal(t, 30, st.CallForwardingTimeout)

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/me/settings", tok, map[string]any{}).Code)

	w = f.do(http.MethodPut, "/api/me/settings", tok, map[string]any{"call_forwarding_timeout": 45, "theme": "dark"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st = decode[settings.Settings](t, w)
	assert.Equal(t, 45, st.CallForwardingTimeout)
	assert.Equal(t, "dark", st.Theme)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/api/me/settings", tok, map[string]any{"call_forwarding_timeout": 1}).Code)
}

func TestMe_OwnerWithoutBusiness(t *testing.T) {
	f := newFixture(t)
	_, tok := f.owner()
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/me/dashboard", tok, nil).Code)
}

// remount serves h on a fresh router. Tokens issued earlier stay valid.
func (f *fixture) remount(h Handlers) {
	f.h = h
	f.r = gin.New()
	h.Mount(f.r.Group("/api"), auth.RequireAccessToken(h.Auth, testCookie))
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	f := newFixture(t)
	_, adminTok := f.admin()
	_, ownerTok, _ := f.ownerWithBusiness()
	base := f.h

	// Any query reaching sqlmock fails the expectations and answers 500.
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlAdmin := base
	sqlAdmin.Businesses = businesses.NewService(businesses.NewSQLRepo(db))
	sqlAdmin.Invites = invites.NewService(invites.NewSQLRepo(db), users.NewDirectory(users.NewMemoryRepo()), nopMailer{}, "https://app.example.com")
	f.remount(sqlAdmin)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/businesses/abc"},
		{http.MethodPut, "/api/businesses/abc"},
		{http.MethodDelete, "/api/businesses/abc"},
		{http.MethodDelete, "/api/admin/invites/not-a-uuid"},
		{http.MethodGet, "/api/me/dashboard?business_id=abc"},
	} {
		var body any
		if tc.method == http.MethodPut {
			body = map[string]any{"business_name": "Renamed"}
		}
		w := f.do(tc.method, tc.path, adminTok, body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s: %s", tc.method, tc.path, w.Body.String())
	}

	sqlOwner := base
	sqlOwner.Calls = calls.NewService(calls.NewSQLRepo(db), audit.NewService(audit.NewSQLRepo(db)), nil)
	sqlOwner.Numbers = numbers.NewService(numbers.NewSQLRepo(db), f.provider, "https://hooks.example.com")
	f.remount(sqlOwner)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/me/calls/abc/events"},
		{http.MethodDelete, "/api/me/phone-numbers/123"},
	} {
		w := f.do(tc.method, tc.path, ownerTok, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s: %s", tc.method, tc.path, w.Body.String())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	r := gin.New()
	r.GET("/health", Health{DB: db}.Handle)

	mock.ExpectPing()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"redis":"disabled"`)

	mock.ExpectPing().WillReturnError(assert.AnError)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }
