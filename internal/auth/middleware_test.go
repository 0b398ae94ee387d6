package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedVersions map[string]int

func (f fixedVersions) GetTokenVersion(_ context.Context, id string) (int, error) {
	v, ok := f[id]
	if !ok {
		return 0, ErrInvalidToken
	}
	return v, nil
}

func newProtectedRouter(ts TokenService, versions VersionStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(ts, versions), func(c *gin.Context) {
		c.String(http.StatusOK, MustGetClaims(c).UserID)
	})
	r.GET("/admin", AuthMiddleware(ts, versions), RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddlewareAcceptsHeaderAndQueryToken(t *testing.T) {
	ts := testTokens()
	raw, _, err := ts.Sign(&User{ID: "u-1", Role: RoleUser, TokenVersion: 1})
	require.NoError(t, err)
	r := newProtectedRouter(ts, fixedVersions{"u-1": 1})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+raw, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareRejectsStaleTokenVersion(t *testing.T) {
	ts := testTokens()
	raw, _, err := ts.Sign(&User{ID: "u-1", Role: RoleUser, TokenVersion: 1})
	require.NoError(t, err)
	r := newProtectedRouter(ts, fixedVersions{"u-1": 2})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	r := newProtectedRouter(testTokens(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	ts := testTokens()
	r := newProtectedRouter(ts, nil)

	userTok, _, _ := ts.Sign(&User{ID: "u-1", Role: RoleUser})
	adminTok, _, _ := ts.Sign(&User{ID: "u-2", Role: RoleAdmin})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userTok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminTok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
