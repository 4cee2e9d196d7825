package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/linemk/commerce-core/internal/domain/models"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// AccountStorage is the credential store. Emails are expected to be normalized
// by the caller.
type AccountStorage interface {
	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdateAccountRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Account, error)
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountStorage {
	return &accountRepository{db: db}
}

const accountColumns = "id, name, email, pass_hash, role, created_at, updated_at"

// CreateAccount inserts a new account; the unique index on email turns a
// duplicate into ErrEmailTaken.
func (r *accountRepository) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	const op = "storage.CreateAccount"

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO accounts (id, name, email, pass_hash, role) VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at",
		account.ID, account.Name, account.Email, account.PassHash, string(account.Role),
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return account, nil
}

func (r *accountRepository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email = $1", email)
	return scanAccount(row, "storage.GetAccountByEmail")
}

func (r *accountRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id)
	return scanAccount(row, "storage.GetAccountByID")
}

func (r *accountRepository) UpdateAccountRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx,
		"UPDATE accounts SET role = $1, updated_at = NOW() WHERE id = $2 RETURNING "+accountColumns,
		string(role), id,
	)
	return scanAccount(row, "storage.UpdateAccountRole")
}

func scanAccount(row *sql.Row, op string) (*models.Account, error) {
	account := &models.Account{}
	var role string
	err := row.Scan(&account.ID, &account.Name, &account.Email, &account.PassHash, &role, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	account.Role = models.Role(role)
	return account, nil
}
