package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(secret []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/", AuthMiddleware(secret), ReadOnlyGuard())
	api.GET("/stats", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("subject")) })
	api.POST("/stats", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("scope")) })
	api.DELETE("/stats", RequireScope(ScopeWrite), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func call(r http.Handler, method, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/stats", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	secret := []byte("top-secret")
	r := newRouter(secret)

	tok, err := IssueToken(secret, "ops", ScopeRead, time.Hour)
	require.NoError(t, err)

	w := call(r, http.MethodGet, "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "Token "+tok).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "Bearer garbage").Code)

	other, err := IssueToken([]byte("other"), "ops", ScopeRead, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "Bearer "+other).Code)
}

func TestAuthMiddleware_Expired(t *testing.T) {
	secret := []byte("top-secret")
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, call(newRouter(secret), http.MethodGet, "Bearer "+tok).Code)
}

func TestAuthMiddleware_NoSecretIsOpen(t *testing.T) {
	r := newRouter(nil)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "").Code)
	w := call(r, http.MethodPost, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ScopeWrite, w.Body.String())
	assert.Equal(t, http.StatusNoContent, call(r, http.MethodDelete, "").Code)
}

func TestScopes(t *testing.T) {
	secret := []byte("top-secret")
	r := newRouter(secret)

	read, err := IssueToken(secret, "viewer", ScopeRead, time.Hour)
	require.NoError(t, err)
	write, err := IssueToken(secret, "ops", ScopeWrite, time.Hour)
	require.NoError(t, err)
	unscoped, err := IssueToken(secret, "legacy", "", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "Bearer "+read).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "Bearer "+read).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodDelete, "Bearer "+read).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodDelete, "Bearer "+unscoped).Code)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "Bearer "+write).Code)
	w := call(r, http.MethodPost, "Bearer "+write)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ScopeWrite, w.Body.String())
	assert.Equal(t, http.StatusNoContent, call(r, http.MethodDelete, "Bearer "+write).Code)
}

func TestRequireScope_WithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireScope(ScopeRead), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIssueToken_Validation(t *testing.T) {
	_, err := IssueToken(nil, "ops", ScopeRead, time.Hour)
	assert.Error(t, err)
	_, err = IssueToken([]byte("s"), "ops", "admin", time.Hour)
	assert.Error(t, err)
}
