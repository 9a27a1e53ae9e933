package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"grc-isms/internal/auth"
	"grc-isms/internal/metrics"
	"grc-isms/internal/models"
	"grc-isms/internal/store"
	"grc-isms/internal/store/memstore"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	st      *memstore.Store
	tokens  *auth.Tokens
	metrics *metrics.Metrics
	journal *Journal
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:      memstore.New(),
		tokens:  auth.NewTokens("test-secret", time.Hour),
		metrics: metrics.New(),
	}
	f.journal = NewJournal(f.st.AuditLogs(), zap.NewNop(), f.metrics)
	a := NewAuth(f.st.Users(), f.tokens, f.journal, zap.NewNop())

	r := gin.New()
	r.Use(sessions.Sessions("grc_session", cookie.NewStore([]byte("session-secret"))))
	r.Use(RequestLogger(zap.NewNop(), f.metrics))

	api := r.Group("/api", a.RequireAuth())
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID})
	})
	api.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	api.DELETE("/risks/:id", f.journal.Activity(models.ActionDelete, "Risk"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	f.router = r
	return f
}

func (f *fixture) user(t *testing.T, role models.UserRole, mutate func(*models.User)) (*models.User, string) {
	t.Helper()
	u := &models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     strings.ToLower(string(role)) + "@grc.local",
		Role:      role,
		IsActive:  true,
	}
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, f.st.Users().Create(context.Background(), u))
	tok, err := f.tokens.Issue(u)
	require.NoError(t, err)
	return u, tok
}

func (f *fixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) securityEvents(t *testing.T) []string {
	t.Helper()
	logs, err := f.st.AuditLogs().All(context.Background())
	require.NoError(t, err)
	var out []string
	for _, l := range logs {
		if l.Action == models.ActionSecurityEvent {
			out = append(out, l.Resource)
		}
	}
	return out
}

func TestRequireAuth_ValidToken(t *testing.T) {
	f := newFixture(t)
	u, tok := f.user(t, models.RoleUser, nil)

	w := f.do(http.MethodGet, "/api/me", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	got, err := f.st.Users().Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastActivity)
	assert.Empty(t, f.securityEvents(t))
}

// racingUsers runs afterGet once, right after the user row has been read.
type racingUsers struct {
	store.UserRepo
	afterGet func()
}

func (r *racingUsers) Get(ctx context.Context, id uint) (*models.User, error) {
	u, err := r.UserRepo.Get(ctx, id)
	if err == nil && r.afterGet != nil {
		r.afterGet()
		r.afterGet = nil
	}
	return u, err
}

func TestRequireAuth_KeepsConcurrentAdminChanges(t *testing.T) {
	f := newFixture(t)
	u, tok := f.user(t, models.RoleAdmin, nil)
	ctx := context.Background()

	users := &racingUsers{UserRepo: f.st.Users(), afterGet: func() {
		_, err := f.st.Users().SetRole(ctx, u.ID, models.RoleUser)
		require.NoError(t, err)
		_, err = f.st.Users().SetActive(ctx, u.ID, false)
		require.NoError(t, err)
	}}
	a := NewAuth(users, f.tokens, f.journal, zap.NewNop())

	r := gin.New()
	r.Use(sessions.Sessions("grc_session", cookie.NewStore([]byte("session-secret"))))
	r.GET("/me", a.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := f.st.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.LastActivity)
}

func TestRequireAuth_Rejections(t *testing.T) {
	f := newFixture(t)
	_, inactive := f.user(t, models.RoleUser, func(u *models.User) { u.IsActive = false })
	_, locked := f.user(t, models.RoleManager, func(u *models.User) { u.FailedLoginAttempts = models.MaxFailedLogins })

	expiredTok, err := auth.NewTokens("test-secret", -time.Minute).Issue(&models.User{Base: models.Base{ID: 1}, Role: models.RoleUser})
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
		event  string
	}{
		{"missing", "", http.StatusUnauthorized, models.EventAuthFailed},
		{"garbage", "not-a-jwt", http.StatusUnauthorized, models.EventTokenInvalid},
		{"expired", expiredTok, http.StatusUnauthorized, models.EventTokenExpired},
		{"inactive", inactive, http.StatusUnauthorized, models.EventAuthFailed},
		{"locked", locked, http.StatusLocked, models.EventAccountLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(f.securityEvents(t))
			w := f.do(http.MethodGet, "/api/me", tt.token)
			assert.Equal(t, tt.status, w.Code)

			events := f.securityEvents(t)
			require.Len(t, events, before+1)
			assert.Equal(t, tt.event, events[len(events)-1])
		})
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.SecurityEvent.WithLabelValues(models.EventAuthFailed)))
}

func TestRequireAuth_SessionFallback(t *testing.T) {
	f := newFixture(t)
	_, tok := f.user(t, models.RoleUser, nil)

	f.router.GET("/login", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(SessionToken, tok)
		require.NoError(t, s.Save())
	})
	login := httptest.NewRecorder()
	f.router.ServeHTTP(login, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	_, userTok := f.user(t, models.RoleUser, nil)
	_, adminTok := f.user(t, models.RoleAdmin, nil)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/admin", userTok).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/admin", adminTok).Code)
}

func TestJournal_Activity(t *testing.T) {
	f := newFixture(t)
	u, tok := f.user(t, models.RoleAdmin, nil)

	w := f.do(http.MethodDelete, "/api/risks/17", tok)
	require.Equal(t, http.StatusOK, w.Code)

	logs, err := f.st.AuditLogs().All(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	l := logs[0]
	assert.Equal(t, models.ActionDelete, l.Action)
	assert.Equal(t, "Risk", l.Resource)
	assert.Equal(t, "17", l.ResourceID)
	require.NotNil(t, l.UserID)
	assert.Equal(t, u.ID, *l.UserID)
	assert.Equal(t, http.StatusOK, l.Details["statusCode"])
}

func TestRateLimiter(t *testing.T) {
	m := metrics.New()
	rl := NewRateLimiter("auth", 0.001, 2, "slow down", m)

	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)
	w := get("10.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = get("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "slow down")

	// у другого адреса своя корзина
	assert.Equal(t, http.StatusOK, get("10.0.0.2").Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitHits.WithLabelValues("auth")))
}

func TestRateLimiter_EvictsIdleClientsOnly(t *testing.T) {
	rl := NewRateLimiter("auth", 0.001, 1, "slow down", metrics.New())
	rl.maxClients = 2
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	get := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.2"))
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, get("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.1"))

	// новые адреса вытесняют самого давнего клиента, а не всех
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, get("10.0.0.3"))
	assert.Len(t, rl.clients, 2)
	assert.NotContains(t, rl.clients, "10.0.0.2")
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.1"))

	now = now.Add(clientTTL + time.Minute)
	assert.Equal(t, http.StatusOK, get("10.0.0.4"))
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "10.0.0.4")
}

func TestSecurityHeadersAndBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(), BodyLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}")))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestLogger_KeepsIncomingID(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop(), m))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, RequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-42", w.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/ping", "200")))
}
