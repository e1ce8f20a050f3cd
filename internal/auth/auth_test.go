package auth

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookexchange/internal/config"
	"github.com/mrlokans/bookexchange/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[string]*entities.User

func (f fakeUsers) GetUserByUsername(_ context.Context, username string) (*entities.User, error) {
	return f[username], nil
}

func setupSessionManager(t *testing.T) *SessionManager {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	sm, err := NewSessionManager(db, config.Auth{
		SessionLifetime: 24 * time.Hour,
		SecureCookies:   false,
	})
	require.NoError(t, err)
	return sm
}

// setupRouter wires /login (logs in the username from the query), /logout
// and a protected /api/me.
func setupRouter(t *testing.T, users fakeUsers) (*gin.Engine, *SessionManager) {
	sm := setupSessionManager(t)
	mw := NewMiddleware(users, sm)

	r := gin.New()
	r.Use(SecurityHeadersMiddleware())
	r.Use(sm.SessionLoadSave())
	r.POST("/login", func(c *gin.Context) {
		user := users[c.Query("username")]
		if user == nil {
			c.Status(http.StatusUnauthorized)
			return
		}
		require.NoError(t, sm.CreateSession(c.Request.Context(), user))
		c.Status(http.StatusNoContent)
	})
	r.POST("/logout", func(c *gin.Context) {
		require.NoError(t, sm.DestroySession(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})
	r.GET("/api/me", mw.RequireUser(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": CurrentUser(c).Username})
	})
	return r, sm
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestNewSessionManager_CookieSettings(t *testing.T) {
	sm := setupSessionManager(t)

	assert.Equal(t, "bookexchange_session", sm.Cookie.Name)
	assert.True(t, sm.Cookie.HttpOnly)
	assert.False(t, sm.Cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, sm.Cookie.SameSite)
	assert.Equal(t, 24*time.Hour, sm.Lifetime)
	assert.Equal(t, 12*time.Hour, sm.IdleTimeout)
}

func TestRequireUser_RejectsAnonymous(t *testing.T) {
	r, _ := setupRouter(t, fakeUsers{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication required")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestLoginSessionRoundTrip(t *testing.T) {
	users := fakeUsers{"alice": {ID: "1", Username: "alice"}}
	r, sm := setupRouter(t, users)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login?username=alice", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookie := sessionCookie(t, w, sm.Cookie.Name)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"alice"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireUser_DeletedUser(t *testing.T) {
	users := fakeUsers{"alice": {ID: "1", Username: "alice"}}
	r, sm := setupRouter(t, users)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login?username=alice", nil))
	cookie := sessionCookie(t, w, sm.Cookie.Name)

	delete(users, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCSRFMiddleware(t *testing.T) {
	secret := []byte(strings.Repeat("k", 32))

	r := gin.New()
	r.Use(CSRFMiddleware(secret, false))
	r.GET("/api/token", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"token": GetCSRFToken(c)})
	})
	r.POST("/api/books", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/token", nil))
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Header().Get(CSRFTokenHeader)
	assert.NotEmpty(t, token)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/books", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "CSRF")
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}
