package service_test

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/linemk/commerce-core/internal/domain/models"
	"github.com/linemk/commerce-core/internal/storage"
)

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.Account // by email
}

var _ storage.AccountStorage = (*fakeAccountRepo)(nil)

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*models.Account)}
}

func (f *fakeAccountRepo) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[account.Email]; ok {
		return nil, storage.ErrEmailTaken
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	f.accounts[account.Email] = account
	return account, nil
}

func (f *fakeAccountRepo) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[email]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	return account, nil
}

func (f *fakeAccountRepo) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, storage.ErrAccountNotFound
}

func (f *fakeAccountRepo) UpdateAccountRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.ID == id {
			a.Role = role
			return a, nil
		}
	}
	return nil, storage.ErrAccountNotFound
}

// fakeCartRepo hands out copies so that, like a database, nothing is shared
// between transactions except through explicit writes.
type fakeCartRepo struct {
	mu     sync.Mutex
	carts  map[uuid.UUID]*models.Cart // by user id
	byCart map[uuid.UUID]*models.Cart
	locks  int
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{
		carts:  make(map[uuid.UUID]*models.Cart),
		byCart: make(map[uuid.UUID]*models.Cart),
	}
}

func copyCart(c *models.Cart) *models.Cart {
	cp := *c
	cp.Items = append([]models.CartItem{}, c.Items...)
	return &cp
}

func (f *fakeCartRepo) EnsureCartTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[userID]; !ok {
		c := &models.Cart{ID: uuid.New(), UserID: userID, Items: []models.CartItem{}, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		f.carts[userID] = c
		f.byCart[c.ID] = c
	}
	return nil
}

func (f *fakeCartRepo) GetCartTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		return nil, storage.ErrCartNotFound
	}
	return copyCart(c), nil
}

func (f *fakeCartRepo) LockCartTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*models.Cart, error) {
	f.mu.Lock()
	f.locks++
	f.mu.Unlock()
	return f.GetCartTx(ctx, tx, userID)
}

func (f *fakeCartRepo) UpsertItemTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID, productID string, quantity int) error {
	// widen the window between read and write
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byCart[cartID]
	if !ok {
		return storage.ErrCartNotFound
	}
	if i := c.Find(productID); i >= 0 {
		c.Items[i].Quantity = quantity
		return nil
	}
	c.Items = append(c.Items, models.CartItem{ProductID: productID, Quantity: quantity})
	return nil
}

func (f *fakeCartRepo) DeleteItemTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.byCart[cartID]
	if i := c.Find(productID); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
	return nil
}

func (f *fakeCartRepo) ClearItemsTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byCart[cartID].Items = []models.CartItem{}
	return nil
}

func (f *fakeCartRepo) TouchCartTx(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byCart[cartID]
	if !ok {
		return time.Time{}, storage.ErrCartNotFound
	}
	c.UpdatedAt = time.Now()
	return c.UpdatedAt, nil
}

func (f *fakeCartRepo) ListCarts(ctx context.Context) ([]*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Cart, 0, len(f.carts))
	for _, c := range f.carts {
		out = append(out, copyCart(c))
	}
	return out, nil
}

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*models.Order
	failWrite error
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	if f.failWrite != nil {
		return f.failWrite
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	order.CreatedAt = time.Now().Add(time.Duration(len(f.orders)) * time.Millisecond)
	order.UpdatedAt = order.CreatedAt
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) sorted(keep func(*models.Order) bool) []*models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Order{}
	for _, o := range f.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeOrderRepo) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	return f.sorted(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (f *fakeOrderRepo) ListOrders(ctx context.Context) ([]*models.Order, error) {
	return f.sorted(func(*models.Order) bool { return true }), nil
}

func (f *fakeOrderRepo) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	o.Status = status
	return o, nil
}

func (f *fakeOrderRepo) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return storage.ErrOrderNotFound
	}
	delete(f.orders, id)
	return nil
}

type fakeCatalog struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func newFakeCatalog(prices map[string]int64) *fakeCatalog {
	c := &fakeCatalog{prices: make(map[string]decimal.Decimal)}
	for id, p := range prices {
		c.prices[id] = decimal.NewFromInt(p)
	}
	return c
}

func (f *fakeCatalog) set(id string, price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[id] = price
}

func (f *fakeCatalog) Prices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]decimal.Decimal)
	for _, id := range ids {
		if p, ok := f.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// inlineTx runs fn without a database; used where sqlmock cannot follow
// concurrent transactions.
type inlineTx struct{}

func (inlineTx) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return fn(ctx, nil)
}
