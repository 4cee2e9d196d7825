package jwtmiddleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linemk/commerce-core/internal/domain/models"
	security "github.com/linemk/commerce-core/internal/jwt-new"
	"github.com/linemk/commerce-core/internal/lib/api/response"
	"github.com/linemk/commerce-core/internal/lib/apperr"
)

type contextKey string

const IdentityKey contextKey = "identity"

var (
	ErrMissingToken  = errors.New("missing token")
	ErrTokenFormat   = errors.New("invalid token format")
	ErrNotAuthorized = errors.New("role not allowed")
)

// TokenVerifier is satisfied by security.TokenManager.
type TokenVerifier interface {
	Verify(token string) (models.Identity, error)
}

// Authenticate resolves an Authorization header ("Bearer <token>") to an identity.
func Authenticate(verifier TokenVerifier, authHeader string) (models.Identity, error) {
	if authHeader == "" {
		return models.Identity{}, ErrMissingToken
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return models.Identity{}, ErrTokenFormat
	}
	return verifier.Verify(parts[1])
}

// Authorize passes iff the identity's role is in allowed.
func Authorize(identity models.Identity, allowed ...models.Role) error {
	for _, role := range allowed {
		if identity.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotAuthorized, identity.Role)
}

// NewJWTMiddleware authenticates every request and stores the identity in the context.
func NewJWTMiddleware(log *slog.Logger, verifier TokenVerifier) func(http.Handler) http.Handler {
	log = log.With(slog.String("component", "middleware/jwt"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := Authenticate(verifier, r.Header.Get("Authorization"))
			if err != nil {
				// expired and invalid are logged apart but look the same outside
				switch {
				case errors.Is(err, security.ErrTokenExpired):
					log.Info("token expired", slog.Any("error", err))
				case errors.Is(err, ErrMissingToken), errors.Is(err, ErrTokenFormat):
					response.Fail(w, log, apperr.KindUnauthenticated, err.Error())
					return
				default:
					log.Info("token rejected", slog.Any("error", err))
				}
				response.Fail(w, log, apperr.KindUnauthenticated, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles must run after NewJWTMiddleware.
func RequireRoles(log *slog.Logger, allowed ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := FromContext(r.Context())
			if !ok {
				response.Fail(w, log, apperr.KindUnauthenticated, "unauthorized")
				return
			}
			if err := Authorize(identity, allowed...); err != nil {
				log.Warn("access denied",
					slog.String("account_id", identity.AccountID.String()),
					slog.String("role", string(identity.Role)),
					slog.String("path", r.URL.Path),
				)
				response.Error(w, log, apperr.Forbidden("access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FromContext returns the identity stored by NewJWTMiddleware.
func FromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(models.Identity)
	return identity, ok
}

// WithIdentity is used by tests and internal callers to attach an identity.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}
