package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrProductNotFound is returned when a cart write references a product id
// that does not exist.
var ErrProductNotFound = errors.New("product not found")

type Item struct {
	ProductID int64           `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SetQuantity upserts a cart line. Quantity must be positive; removal is a
// separate operation.
func (r *Repository) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	const q = `
INSERT INTO cart_items (user_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, product_id) DO UPDATE SET
  quantity = EXCLUDED.quantity,
  updated_at = NOW()
`
	_, err := r.db.Exec(ctx, q, userID, productID, quantity)
	if err != nil {
		// 23503: foreign_key_violation, the product id is unknown.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, userID, productID int64) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`
	_, err := r.db.Exec(ctx, q, userID, productID)
	return err
}

// Items returns the cart joined against live product data. Lines whose
// product has been deactivated since they were added are skipped.
func (r *Repository) Items(ctx context.Context, userID int64) ([]Item, error) {
	const q = `
SELECT ci.product_id, p.title, p.price, ci.quantity
FROM cart_items ci
JOIN products p ON p.id = ci.product_id AND p.is_active
WHERE ci.user_id = $1
ORDER BY ci.updated_at DESC
`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Title, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		it.LineTotal = it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		out = append(out, it)
	}
	return out, rows.Err()
}

// Total sums the line totals.
func Total(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal)
	}
	return sum
}
