package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/linemk/commerce-core/internal/domain/models"
	"github.com/linemk/commerce-core/internal/lib/apperr"
	"github.com/linemk/commerce-core/internal/storage"
)

type OrderService interface {
	Create(ctx context.Context, userID uuid.UUID, items []models.OrderItem) (*models.Order, error)
	Checkout(ctx context.Context, userID uuid.UUID) (*models.Order, error)
	Get(ctx context.Context, identity models.Identity, orderID string) (*models.Order, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	ListAll(ctx context.Context) ([]*models.Order, error)
	SetStatus(ctx context.Context, orderID string, status string) (*models.Order, error)
	Delete(ctx context.Context, orderID string) error
}

type orderService struct {
	log    *slog.Logger
	tx     storage.Transactor
	orders storage.OrderStorage
	carts  storage.CartStorage
	prices storage.CatalogLookup
	locks  *AccountLocks
}

// NewOrderService builds the order lifecycle. prices is read at checkout to
// freeze unit prices, so it should not be a cached lookup.
func NewOrderService(log *slog.Logger, tx storage.Transactor, orders storage.OrderStorage, carts storage.CartStorage, prices storage.CatalogLookup, locks *AccountLocks) OrderService {
	return &orderService{
		log:    log,
		tx:     tx,
		orders: orders,
		carts:  carts,
		prices: prices,
		locks:  locks,
	}
}

// Create places an order from client-declared lines. The total is always
// computed here; the order and its lines are written in one transaction.
func (s *orderService) Create(ctx context.Context, userID uuid.UUID, items []models.OrderItem) (*models.Order, error) {
	const op = "service.OrderService.Create"
	logger := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	if len(items) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	lines := make([]models.OrderItem, 0, len(items))
	for i, item := range items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		switch {
		case item.ProductID == "":
			return nil, apperr.Validation(fmt.Sprintf("items[%d]: productId is required", i))
		case item.Quantity < 1:
			return nil, apperr.Validation(fmt.Sprintf("items[%d]: quantity must be at least 1", i))
		case item.Quantity > models.MaxQuantity:
			return nil, apperr.Validation(fmt.Sprintf("items[%d]: quantity must be at most %d", i, models.MaxQuantity))
		}
		if err := models.CheckPrice(item.Price); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, fmt.Sprintf("items[%d]: %v", i, err), err)
		}
		lines = append(lines, item)
	}

	order, err := newOrder(userID, lines)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.orders.CreateOrderTx(ctx, tx, order)
	})
	if err != nil {
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	logger.Info("order created", slog.String("order_id", order.ID.String()), slog.String("total", order.TotalAmount.String()))
	return order, nil
}

// Checkout turns the caller's cart into an order priced from the catalog and
// empties the cart, all in one transaction.
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	const op = "service.OrderService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	unlock, err := s.locks.Lock(ctx, userID)
	if err != nil {
		logger.Error("account is busy", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	defer unlock()

	var order *models.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.carts.EnsureCartTx(ctx, tx, userID); err != nil {
			return err
		}
		cart, err := s.carts.LockCartTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return apperr.Validation("cart is empty")
		}

		ids := make([]string, 0, len(cart.Items))
		for _, item := range cart.Items {
			ids = append(ids, item.ProductID)
		}
		prices, err := s.prices.Prices(ctx, ids)
		if err != nil {
			return fmt.Errorf("resolve prices: %w", err)
		}

		lines := make([]models.OrderItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			price, ok := prices[item.ProductID]
			if !ok {
				return apperr.Validation(fmt.Sprintf("product %s is no longer available", item.ProductID))
			}
			lines = append(lines, models.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: price})
		}

		o, err := newOrder(userID, lines)
		if err != nil {
			return err
		}
		if err := s.orders.CreateOrderTx(ctx, tx, o); err != nil {
			return err
		}
		if err := s.carts.ClearItemsTx(ctx, tx, cart.ID); err != nil {
			return err
		}
		if _, err := s.carts.TouchCartTx(ctx, tx, cart.ID); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			logger.Info("checkout rejected", slog.Any("error", err))
			return nil, err
		}
		logger.Error("checkout failed", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	logger.Info("order created from cart", slog.String("order_id", order.ID.String()), slog.String("total", order.TotalAmount.String()))
	return order, nil
}

// Get returns one order to its owner or to an admin. Other callers get
// NotFound so that order ids cannot be probed.
func (s *orderService) Get(ctx context.Context, identity models.Identity, orderID string) (*models.Order, error) {
	const op = "service.OrderService.Get"
	logger := s.log.With(slog.String("op", op), slog.String("order_id", orderID))

	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, apperr.NotFound("order not found")
	}

	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "order not found", err)
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if order.UserID != identity.AccountID && identity.Role != models.RoleAdmin {
		logger.Warn("order requested by another account", slog.String("account_id", identity.AccountID.String()))
		return nil, apperr.NotFound("order not found")
	}
	return order, nil
}

func (s *orderService) ListMine(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	const op = "service.OrderService.ListMine"

	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return orders, nil
}

func (s *orderService) ListAll(ctx context.Context) ([]*models.Order, error) {
	const op = "service.OrderService.ListAll"

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return orders, nil
}

// SetStatus validates the target before touching storage. Any recognized
// status may be set directly.
func (s *orderService) SetStatus(ctx context.Context, orderID string, status string) (*models.Order, error) {
	const op = "service.OrderService.SetStatus"
	logger := s.log.With(slog.String("op", op), slog.String("order_id", orderID))

	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, apperr.NotFound("order not found")
	}
	newStatus, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "status must be one of: pending, processing, paid, shipped", err)
	}

	var order *models.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		o, err := s.orders.UpdateOrderStatusTx(ctx, tx, id, newStatus)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "order not found", err)
		}
		logger.Error("failed to update status", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	logger.Info("order status updated", slog.String("status", string(newStatus)))
	return order, nil
}

// Delete removes the order permanently. The originating cart is not touched.
func (s *orderService) Delete(ctx context.Context, orderID string) error {
	const op = "service.OrderService.Delete"
	logger := s.log.With(slog.String("op", op), slog.String("order_id", orderID))

	id, err := uuid.Parse(orderID)
	if err != nil {
		return apperr.NotFound("order not found")
	}

	if err := s.orders.DeleteOrder(ctx, id); err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return apperr.Wrap(apperr.KindNotFound, "order not found", err)
		}
		logger.Error("failed to delete order", slog.Any("error", err))
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	logger.Info("order deleted")
	return nil
}

func newOrder(userID uuid.UUID, lines []models.OrderItem) (*models.Order, error) {
	total := models.OrderTotal(lines)
	if total.GreaterThan(models.MaxOrderTotal) {
		return nil, apperr.Validation("order total is too large")
	}
	return &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Items:       lines,
		TotalAmount: total,
		Status:      models.OrderStatusPending,
	}, nil
}
