package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/linemk/commerce-core/internal/domain/models"
)

var ErrCartNotFound = errors.New("cart not found")

// CartStorage keeps one cart per account. Mutating methods run on a
// transaction that holds the cart row lock taken by LockCartTx.
type CartStorage interface {
	EnsureCartTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error
	GetCartTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*models.Cart, error)
	LockCartTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*models.Cart, error)
	UpsertItemTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID, productID string, quantity int) error
	DeleteItemTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID, productID string) error
	ClearItemsTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) error
	TouchCartTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) (time.Time, error)
	ListCarts(ctx context.Context) ([]*models.Cart, error)
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

// EnsureCartTx creates the account's cart unless it already exists.
func (r *cartRepository) EnsureCartTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error {
	const op = "storage.EnsureCartTx"

	_, err := tx.ExecContext(ctx,
		"INSERT INTO carts (id, user_id) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING",
		uuid.New(), userID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

func (r *cartRepository) GetCartTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*models.Cart, error) {
	return r.loadCart(ctx, tx, "SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1", userID)
}

// LockCartTx blocks until the cart row is free; the statement deadline in ctx bounds the wait.
func (r *cartRepository) LockCartTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*models.Cart, error) {
	return r.loadCart(ctx, tx, "SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE", userID)
}

func (r *cartRepository) loadCart(ctx context.Context, tx *sql.Tx, query string, userID uuid.UUID) (*models.Cart, error) {
	const op = "storage.loadCart"

	cart := &models.Cart{}
	row := tx.QueryRowContext(ctx, query, userID)
	if err := row.Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY added_at, product_id",
		cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: items: %w", op, classify(err))
	}
	defer rows.Close()

	cart.Items = []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("%s: scan item: %w", op, err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return cart, nil
}

// UpsertItemTx sets the absolute quantity of a line, creating it if needed.
func (r *cartRepository) UpsertItemTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID, productID string, quantity int) error {
	const op = "storage.UpsertItemTx"

	_, err := tx.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

func (r *cartRepository) DeleteItemTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID, productID string) error {
	const op = "storage.DeleteItemTx"

	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2", cartID, productID); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

func (r *cartRepository) ClearItemsTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) error {
	const op = "storage.ClearItemsTx"

	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

func (r *cartRepository) TouchCartTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) (time.Time, error) {
	const op = "storage.TouchCartTx"

	var updatedAt time.Time
	err := tx.QueryRowContext(ctx, "UPDATE carts SET updated_at = NOW() WHERE id = $1 RETURNING updated_at", cartID).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrCartNotFound
		}
		return time.Time{}, fmt.Errorf("%s: %w", op, classify(err))
	}
	return updatedAt, nil
}

// ListCarts returns every cart with its lines, most recently updated first.
func (r *cartRepository) ListCarts(ctx context.Context) ([]*models.Cart, error) {
	const op = "storage.ListCarts"

	rows, err := r.db.QueryContext(ctx, "SELECT id, user_id, created_at, updated_at FROM carts ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	carts := []*models.Cart{}
	byID := make(map[uuid.UUID]*models.Cart)
	for rows.Next() {
		cart := &models.Cart{Items: []models.CartItem{}}
		if err := rows.Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		carts = append(carts, cart)
		byID[cart.ID] = cart
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	if len(carts) == 0 {
		return carts, nil
	}

	itemRows, err := r.db.QueryContext(ctx, "SELECT cart_id, product_id, quantity FROM cart_items ORDER BY cart_id, added_at, product_id")
	if err != nil {
		return nil, fmt.Errorf("%s: items: %w", op, classify(err))
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			cartID uuid.UUID
			item   models.CartItem
		)
		if err := itemRows.Scan(&cartID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("%s: scan item: %w", op, err)
		}
		// items of a cart created after the first query are skipped
		if cart, ok := byID[cartID]; ok {
			cart.Items = append(cart.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return carts, nil
}
