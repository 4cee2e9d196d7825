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

// CartService is the per-account cart aggregate. All results are priced
// against the catalog at read time.
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.CartView, error)
	Add(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*models.CartView, error)
	SetQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*models.CartView, error)
	Remove(ctx context.Context, userID uuid.UUID, productID string) (*models.CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) (*models.CartView, error)
	ListAll(ctx context.Context) ([]*models.CartView, error)
}

type cartService struct {
	log     *slog.Logger
	tx      storage.Transactor
	carts   storage.CartStorage
	catalog storage.CatalogLookup
	locks   *AccountLocks
}

func NewCartService(log *slog.Logger, tx storage.Transactor, carts storage.CartStorage, catalog storage.CatalogLookup, locks *AccountLocks) CartService {
	return &cartService{
		log:     log,
		tx:      tx,
		carts:   carts,
		catalog: catalog,
		locks:   locks,
	}
}

// cartMutation changes cart in memory and persists the change on tx.
type cartMutation func(ctx context.Context, tx *sql.Tx, cart *models.Cart) error

func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (*models.CartView, error) {
	const op = "service.CartService.Get"
	logger := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	var cart *models.Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.carts.EnsureCartTx(ctx, tx, userID); err != nil {
			return err
		}
		c, err := s.carts.GetCartTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		cart = c
		return nil
	})
	if err != nil {
		logger.Error("failed to load cart", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	return s.price(ctx, op, cart)
}

// Add increments an existing line or appends a new one. The product is not
// checked against the catalog here; unknown references price at zero.
func (s *cartService) Add(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*models.CartView, error) {
	const op = "service.CartService.Add"

	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperr.Validation("productId is required")
	}
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}

	return s.mutate(ctx, op, userID, func(ctx context.Context, tx *sql.Tx, cart *models.Cart) error {
		newQty := quantity
		if i := cart.Find(productID); i >= 0 {
			if cart.Items[i].Quantity > models.MaxQuantity-quantity {
				return apperr.Validation(fmt.Sprintf("quantity of %s would exceed %d", productID, models.MaxQuantity))
			}
			newQty += cart.Items[i].Quantity
			cart.Items[i].Quantity = newQty
		} else {
			cart.Items = append(cart.Items, models.CartItem{ProductID: productID, Quantity: quantity})
		}
		return s.carts.UpsertItemTx(ctx, tx, cart.ID, productID, newQty)
	})
}

// SetQuantity replaces the quantity of an existing line and never creates one.
func (s *cartService) SetQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*models.CartView, error) {
	const op = "service.CartService.SetQuantity"

	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}

	return s.mutate(ctx, op, userID, func(ctx context.Context, tx *sql.Tx, cart *models.Cart) error {
		i := cart.Find(productID)
		if i < 0 {
			return apperr.NotFound("item not found in cart")
		}
		cart.Items[i].Quantity = quantity
		return s.carts.UpsertItemTx(ctx, tx, cart.ID, productID, quantity)
	})
}

// Remove is idempotent: removing an absent line succeeds.
func (s *cartService) Remove(ctx context.Context, userID uuid.UUID, productID string) (*models.CartView, error) {
	const op = "service.CartService.Remove"

	return s.mutate(ctx, op, userID, func(ctx context.Context, tx *sql.Tx, cart *models.Cart) error {
		i := cart.Find(productID)
		if i < 0 {
			return nil
		}
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		return s.carts.DeleteItemTx(ctx, tx, cart.ID, productID)
	})
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (*models.CartView, error) {
	const op = "service.CartService.Clear"

	return s.mutate(ctx, op, userID, func(ctx context.Context, tx *sql.Tx, cart *models.Cart) error {
		cart.Items = []models.CartItem{}
		return s.carts.ClearItemsTx(ctx, tx, cart.ID)
	})
}

func (s *cartService) ListAll(ctx context.Context) ([]*models.CartView, error) {
	const op = "service.CartService.ListAll"
	logger := s.log.With(slog.String("op", op))

	carts, err := s.carts.ListCarts(ctx)
	if err != nil {
		logger.Error("failed to list carts", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, cart := range carts {
		for _, item := range cart.Items {
			if _, ok := seen[item.ProductID]; !ok {
				seen[item.ProductID] = struct{}{}
				ids = append(ids, item.ProductID)
			}
		}
	}
	prices, err := s.catalog.Prices(ctx, ids)
	if err != nil {
		logger.Error("failed to resolve prices", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	views := make([]*models.CartView, 0, len(carts))
	for _, cart := range carts {
		views = append(views, models.PriceCart(cart, prices))
	}
	return views, nil
}

// mutate runs fn under the account lock and the cart row lock so that the
// read-compute-write cycle cannot interleave with another mutation.
func (s *cartService) mutate(ctx context.Context, op string, userID uuid.UUID, fn cartMutation) (*models.CartView, error) {
	logger := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	unlock, err := s.locks.Lock(ctx, userID)
	if err != nil {
		logger.Error("account is busy", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	defer unlock()

	var cart *models.Cart
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.carts.EnsureCartTx(ctx, tx, userID); err != nil {
			return err
		}
		c, err := s.carts.LockCartTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, c); err != nil {
			return err
		}
		updatedAt, err := s.carts.TouchCartTx(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		c.UpdatedAt = updatedAt
		cart = c
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			logger.Info("cart mutation rejected", slog.Any("error", err))
			return nil, err
		}
		logger.Error("cart mutation failed", slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	logger.Debug("cart updated", slog.Int("lines", len(cart.Items)))
	return s.price(ctx, op, cart)
}

func checkQuantity(quantity int) error {
	switch {
	case quantity < 1:
		return apperr.Validation("quantity must be at least 1")
	case quantity > models.MaxQuantity:
		return apperr.Validation(fmt.Sprintf("quantity must be at most %d", models.MaxQuantity))
	}
	return nil
}

func (s *cartService) price(ctx context.Context, op string, cart *models.Cart) (*models.CartView, error) {
	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	prices, err := s.catalog.Prices(ctx, ids)
	if err != nil {
		s.log.Error("failed to resolve prices", slog.String("op", op), slog.Any("error", err))
		return nil, apperr.Internal(fmt.Errorf("%s: resolve prices: %w", op, err))
	}
	return models.PriceCart(cart, prices), nil
}
