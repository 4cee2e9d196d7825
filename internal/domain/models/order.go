package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusShipped    OrderStatus = "shipped"
)

var ErrInvalidOrderStatus = errors.New("invalid order status")

// ParseOrderStatus normalizes case and surrounding space before checking the set.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusPaid, OrderStatusShipped:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrderStatus, s)
	}
}

// OrderItem is a frozen line: the price is the unit price at order time.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order is an immutable priced snapshot; only Status changes after creation.
type Order struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Bounds of the order columns: quantity INTEGER, price NUMERIC(12,2),
// total_amount NUMERIC(14,2).
const (
	MaxQuantity = math.MaxInt32
	PriceScale  = 2
)

var (
	MaxPrice      = decimal.New(1, 10).Sub(decimal.New(1, -PriceScale))
	MaxOrderTotal = decimal.New(1, 12).Sub(decimal.New(1, -PriceScale))

	ErrPriceNegative = errors.New("price must not be negative")
	ErrPriceScale    = errors.New("price must have at most 2 decimal places")
	ErrPriceTooLarge = errors.New("price is too large")
)

// CheckPrice accepts prices that are stored without rounding.
func CheckPrice(p decimal.Decimal) error {
	switch {
	case p.IsNegative():
		return ErrPriceNegative
	case !p.Equal(p.Round(PriceScale)):
		return ErrPriceScale
	case p.GreaterThan(MaxPrice):
		return ErrPriceTooLarge
	}
	return nil
}

// OrderTotal is the authoritative sum of quantity*price.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
