package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/linemk/commerce-core/internal/domain/models"
	"github.com/linemk/commerce-core/internal/lib/apperr"
	"github.com/linemk/commerce-core/internal/storage"
)

const (
	MinPasswordLength = 6
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

// errBadCredentials is shared by the unknown-email and wrong-password paths.
var errBadCredentials = apperr.Validation("invalid email or password")

// TokenIssuer is satisfied by security.TokenManager.
type TokenIssuer interface {
	NewToken(accountID uuid.UUID, role models.Role) (string, error)
}

type AuthServiceInterface interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	UpdateRole(ctx context.Context, accountID string, role string) (*models.Account, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	// Role is optional; empty means user. Admin cannot be self-assigned.
	Role string
}

type AuthResult struct {
	Token   string
	Account *models.Account
}

type AuthService struct {
	log      *slog.Logger
	accounts storage.AccountStorage
	tokens   TokenIssuer
}

func NewAuthService(log *slog.Logger, accounts storage.AccountStorage, tokens TokenIssuer) *AuthService {
	return &AuthService{
		log:      log,
		accounts: accounts,
		tokens:   tokens,
	}
}

// Register creates an account and returns a token for it.
func (a *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	const op = "service.AuthService.Register"
	email := models.NormalizeEmail(in.Email)
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	name := strings.TrimSpace(in.Name)
	if name == "" || email == "" || in.Password == "" {
		return nil, apperr.Validation("name, email and password are required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(in.Password) > MaxPasswordBytes {
		return nil, apperr.Validation(fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}

	role := models.RoleUser
	if in.Role != "" {
		parsed, err := models.ParseRole(in.Role)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "role must be one of: user, vendor", err)
		}
		if parsed == models.RoleAdmin {
			logger.Warn("attempt to self-register as admin")
			return nil, apperr.Validation("role must be one of: user, vendor")
		}
		role = parsed
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: failed to hash password: %w", op, err))
	}

	account, err := a.accounts.CreateAccount(ctx, &models.Account{
		Name:     name,
		Email:    email,
		PassHash: passHash,
		Role:     role,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			logger.Info("email already registered")
			return nil, apperr.Conflict("email already registered")
		}
		logger.Error("failed to create account", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: failed to create account: %w", op, err))
	}

	token, err := a.issue(account)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	logger.Info("account registered", slog.String("account_id", account.ID.String()), slog.String("role", string(role)))
	return &AuthResult{Token: token, Account: account}, nil
}

// Login checks the password against the stored hash. Unknown email and wrong
// password produce the same error.
func (a *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "service.AuthService.Login"
	email = models.NormalizeEmail(email)
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	account, err := a.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			logger.Info("unknown email")
			return nil, errBadCredentials
		}
		logger.Error("failed to get account", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: failed to get account: %w", op, err))
	}

	if err := bcrypt.CompareHashAndPassword(account.PassHash, []byte(password)); err != nil {
		logger.Info("invalid password")
		return nil, errBadCredentials
	}

	token, err := a.issue(account)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	logger.Info("account logged in", slog.String("account_id", account.ID.String()))
	return &AuthResult{Token: token, Account: account}, nil
}

func (a *AuthService) Me(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	const op = "service.AuthService.Me"

	account, err := a.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "account not found", err)
		}
		a.log.Error("failed to get account", slog.String("op", op), slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return account, nil
}

// UpdateRole is the only way to change a role. Already issued tokens keep
// the old role until they expire.
func (a *AuthService) UpdateRole(ctx context.Context, accountID string, role string) (*models.Account, error) {
	const op = "service.AuthService.UpdateRole"
	logger := a.log.With(slog.String("op", op), slog.String("account_id", accountID))

	id, err := uuid.Parse(accountID)
	if err != nil {
		return nil, apperr.NotFound("account not found")
	}
	newRole, err := models.ParseRole(role)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "role must be one of: user, admin, vendor", err)
	}

	account, err := a.accounts.UpdateAccountRole(ctx, id, newRole)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "account not found", err)
		}
		logger.Error("failed to update role", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	logger.Info("role updated", slog.String("role", string(newRole)))
	return account, nil
}

// EnsureAdmin creates the bootstrap admin unless the email is already taken.
// An existing account is left untouched.
func (a *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	const op = "service.AuthService.EnsureAdmin"
	email = models.NormalizeEmail(email)
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	if email == "" || len(password) < MinPasswordLength || len(password) > MaxPasswordBytes {
		return fmt.Errorf("%s: admin email and a password of %d to %d bytes are required", op, MinPasswordLength, MaxPasswordBytes)
	}

	_, err := a.accounts.GetAccountByEmail(ctx, email)
	if err == nil {
		logger.Debug("admin account already exists")
		return nil
	}
	if !errors.Is(err, storage.ErrAccountNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%s: failed to hash password: %w", op, err)
	}
	_, err = a.accounts.CreateAccount(ctx, &models.Account{
		Name:     name,
		Email:    email,
		PassHash: passHash,
		Role:     models.RoleAdmin,
	})
	if err != nil && !errors.Is(err, storage.ErrEmailTaken) {
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("admin account created")
	return nil
}

func (a *AuthService) issue(account *models.Account) (string, error) {
	token, err := a.tokens.NewToken(account.ID, account.Role)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}
