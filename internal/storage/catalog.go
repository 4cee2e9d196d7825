package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CatalogLookup resolves product references to their current unit price.
// References that do not exist are simply absent from the result.
type CatalogLookup interface {
	Prices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error)
}

type catalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) CatalogLookup {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Prices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error) {
	const op = "storage.Prices"

	prices := make(map[string]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return prices, nil
	}

	rows, err := r.db.QueryContext(ctx, "SELECT id, price FROM products WHERE id = ANY($1)", pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			price decimal.Decimal
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		prices[id] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return prices, nil
}
