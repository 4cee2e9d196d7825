package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/linemk/commerce-core/internal/domain/models"
)

var (
	// ErrInvalidToken covers bad signatures, unexpected algorithms and malformed claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is kept apart from ErrInvalidToken for diagnostics.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload of an access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens with a process-wide secret.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("jwt ttl must be positive, got %s", ttl)
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// NewToken signs a token for accountID carrying a snapshot of role.
func (m *TokenManager) NewToken(accountID uuid.UUID, role models.Role) (string, error) {
	now := m.now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, shape and expiry and returns the identity. The
// role claim must be one of the known roles.
func (m *TokenManager) Verify(tokenStr string) (models.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return models.Identity{AccountID: accountID, Role: role}, nil
}
