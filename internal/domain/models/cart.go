package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line of a cart; at most one per ProductID.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is owned by exactly one account and created lazily.
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Find returns the index of the line for productID or -1.
func (c *Cart) Find(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// CartLineView is a cart line priced at read time.
type CartLineView struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Available bool            `json:"available"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// CartView is a cart enriched with live catalog prices.
type CartView struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	Items       []CartLineView  `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// PriceCart builds a view from current prices. References missing from
// prices contribute zero to the total.
func PriceCart(cart *Cart, prices map[string]decimal.Decimal) *CartView {
	view := &CartView{
		ID:          cart.ID,
		UserID:      cart.UserID,
		Items:       make([]CartLineView, 0, len(cart.Items)),
		TotalAmount: decimal.Zero,
		UpdatedAt:   cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		price, ok := prices[item.ProductID]
		if !ok {
			price = decimal.Zero
		}
		line := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Items = append(view.Items, CartLineView{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
			Available: ok,
			LineTotal: line,
		})
		view.TotalAmount = view.TotalAmount.Add(line)
	}
	return view
}
