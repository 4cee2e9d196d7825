package jwtmiddleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/commerce-core/internal/domain/models"
	security "github.com/linemk/commerce-core/internal/jwt-new"
	"github.com/linemk/commerce-core/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/commerce-core/internal/lib/logger"
)

const testSecret = "testsecret"

func newManager(t *testing.T) *security.TokenManager {
	t.Helper()
	m, err := security.NewTokenManager(testSecret, 24*time.Hour)
	require.NoError(t, err)
	return m
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestJWTMiddleware_MissingAuthorization(t *testing.T) {
	h := jwtmiddleware.NewJWTMiddleware(logger.Discard(), newManager(t))(okHandler())

	rr := serve(h, "")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "missing token"))
}

func TestJWTMiddleware_InvalidAuthorizationFormat(t *testing.T) {
	h := jwtmiddleware.NewJWTMiddleware(logger.Discard(), newManager(t))(okHandler())

	for _, header := range []string{"InvalidFormat", "Token abc", "Bearer a b"} {
		rr := serve(h, header)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, header)
		assert.Contains(t, rr.Body.String(), "invalid token format", header)
	}
}

func TestJWTMiddleware_InvalidToken(t *testing.T) {
	h := jwtmiddleware.NewJWTMiddleware(logger.Discard(), newManager(t))(okHandler())

	rr := serve(h, "Bearer invalid.token.value")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), `"kind":"unauthenticated"`)
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	claims := security.Claims{
		Role: "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	h := jwtmiddleware.NewJWTMiddleware(logger.Discard(), newManager(t))(okHandler())
	rr := serve(h, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	m := newManager(t)
	id := uuid.New()
	token, err := m.NewToken(id, models.RoleUser)
	require.NoError(t, err)

	var got models.Identity
	h := jwtmiddleware.NewJWTMiddleware(logger.Discard(), m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "identity not found", http.StatusInternalServerError)
			return
		}
		got = identity
		w.WriteHeader(http.StatusOK)
	}))

	rr := serve(h, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, id, got.AccountID)
	assert.Equal(t, models.RoleUser, got.Role)
}

func TestRequireRoles(t *testing.T) {
	m := newManager(t)
	log := logger.Discard()
	chain := jwtmiddleware.NewJWTMiddleware(log, m)(jwtmiddleware.RequireRoles(log, models.RoleAdmin)(okHandler()))

	userToken, err := m.NewToken(uuid.New(), models.RoleUser)
	require.NoError(t, err)
	adminToken, err := m.NewToken(uuid.New(), models.RoleAdmin)
	require.NoError(t, err)

	denied := serve(chain, "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, denied.Code)
	assert.JSONEq(t, `{"kind":"forbidden","message":"access denied"}`, denied.Body.String())
	assert.Equal(t, http.StatusOK, serve(chain, "Bearer "+adminToken).Code)
	// authentication short-circuits before the role check
	assert.Equal(t, http.StatusUnauthorized, serve(chain, "").Code)
}

func TestRequireRoles_NoIdentity(t *testing.T) {
	h := jwtmiddleware.RequireRoles(logger.Discard(), models.RoleAdmin)(okHandler())
	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
}

func TestAuthorize(t *testing.T) {
	vendor := models.Identity{AccountID: uuid.New(), Role: models.RoleVendor}
	assert.NoError(t, jwtmiddleware.Authorize(vendor, models.RoleAdmin, models.RoleVendor))
	assert.ErrorIs(t, jwtmiddleware.Authorize(vendor, models.RoleAdmin), jwtmiddleware.ErrNotAuthorized)
	assert.Error(t, jwtmiddleware.Authorize(vendor))
}

func TestFromContext(t *testing.T) {
	identity := models.Identity{AccountID: uuid.New(), Role: models.RoleAdmin}
	ctx := jwtmiddleware.WithIdentity(context.Background(), identity)

	got, ok := jwtmiddleware.FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, identity, got)

	_, ok = jwtmiddleware.FromContext(context.Background())
	assert.False(t, ok)
}
