package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/linemk/commerce-core/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage persists orders together with their frozen line items.
type OrderStorage interface {
	// CreateOrderTx writes the order row and all of its lines on tx.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// ListOrdersByUser returns the user's orders, newest first.
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	// ListOrders returns every order, newest first.
	ListOrders(ctx context.Context) ([]*models.Order, error)
	UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

// queryer is the read side shared by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const orderColumns = "id, user_id, total_amount, status, created_at, updated_at"

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	const op = "storage.CreateOrderTx"

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	err := tx.QueryRowContext(ctx,
		"INSERT INTO orders (id, user_id, total_amount, status) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at",
		order.ID, order.UserID, order.TotalAmount, string(order.Status),
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: failed to create order: %w", op, classify(err))
	}

	for i, item := range order.Items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, position, product_id, quantity, price) VALUES ($1, $2, $3, $4, $5)",
			order.ID, i, item.ProductID, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("%s: failed to create order item %s: %w", op, item.ProductID, classify(err))
		}
	}
	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	const op = "storage.GetOrderByID"

	order, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := loadOrderItems(ctx, r.db, []*models.Order{order}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	return r.list(ctx, "storage.ListOrdersByUser",
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id", userID)
}

func (r *orderRepository) ListOrders(ctx context.Context) ([]*models.Order, error) {
	return r.list(ctx, "storage.ListOrders",
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC, id")
}

func (r *orderRepository) list(ctx context.Context, op, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		order := &models.Order{}
		var status string
		if err := rows.Scan(&order.ID, &order.UserID, &order.TotalAmount, &status, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		order.Status = models.OrderStatus(status)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	if err := loadOrderItems(ctx, r.db, orders); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// UpdateOrderStatusTx changes only the status; lines and total stay frozen.
func (r *orderRepository) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	const op = "storage.UpdateOrderStatusTx"

	order, err := scanOrder(tx.QueryRowContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING "+orderColumns,
		string(status), id,
	))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := loadOrderItems(ctx, tx, []*models.Order{order}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

// DeleteOrder removes the order; its lines go with it (ON DELETE CASCADE).
func (r *orderRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	const op = "storage.DeleteOrder"

	res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func scanOrder(row *sql.Row) (*models.Order, error) {
	order := &models.Order{}
	var status string
	if err := row.Scan(&order.ID, &order.UserID, &order.TotalAmount, &status, &order.CreatedAt, &order.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, classify(err)
	}
	order.Status = models.OrderStatus(status)
	return order, nil
}

// loadOrderItems fills Items of every order with a single query.
func loadOrderItems(ctx context.Context, q queryer, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	byID := make(map[uuid.UUID]*models.Order, len(orders))
	for _, order := range orders {
		order.Items = []models.OrderItem{}
		ids = append(ids, order.ID.String())
		byID[order.ID] = order
	}

	rows, err := q.QueryContext(ctx,
		"SELECT order_id, product_id, quantity, price FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, position",
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("load items: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			item    models.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("scan item: %w", err)
		}
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load items: %w", classify(err))
	}
	return nil
}
