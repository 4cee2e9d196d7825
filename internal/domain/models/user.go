package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the permission tier of an account.
type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleVendor Role = "vendor"
)

// ErrInvalidRole is returned for any value outside user/admin/vendor.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole accepts only the known roles, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAdmin, RoleVendor:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Account is an identity record. PassHash never leaves the storage/auth path.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity is what a verified token resolves to.
type Identity struct {
	AccountID uuid.UUID
	Role      Role
}

// NormalizeEmail is applied before every uniqueness check and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
