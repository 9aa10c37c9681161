package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"minishop/pkg/db"
)

var ErrEmptyCart = errors.New("cart is empty")
var ErrNotFound = errors.New("order not found")

type Order struct {
	ID        int64           `json:"id"`
	Number    string          `json:"number"`
	UserID    int64           `json:"userId"`
	Status    Status          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Items     []Item          `json:"items,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Item snapshots the product title and price at checkout time; later catalog
// edits must not rewrite order history.
type Item struct {
	ProductID int64           `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Checkout turns the user's cart into an order in one transaction: read the
// cart, snapshot prices into order items, write the total, clear the cart.
func (r *Repository) Checkout(ctx context.Context, userID int64) (*Order, error) {
	var out *Order
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const cartQ = `
SELECT ci.product_id, p.title, p.price, ci.quantity
FROM cart_items ci
JOIN products p ON p.id = ci.product_id AND p.is_active
WHERE ci.user_id = $1
FOR UPDATE OF ci
`
		rows, err := tx.Query(ctx, cartQ, userID)
		if err != nil {
			return err
		}
		var items []Item
		for rows.Next() {
			var it Item
			if err := rows.Scan(&it.ProductID, &it.Title, &it.Price, &it.Quantity); err != nil {
				rows.Close()
				return err
			}
			items = append(items, it)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		for _, it := range items {
			total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}

		const orderQ = `
INSERT INTO orders (number, user_id, status, total)
VALUES ($1, $2, $3, $4)
RETURNING id, number, user_id, status, total, created_at, updated_at
`
		o := &Order{}
		if err := tx.QueryRow(ctx, orderQ, uuid.NewString(), userID, string(StatusPending), total).Scan(
			&o.ID, &o.Number, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return err
		}

		const itemQ = `
INSERT INTO order_items (order_id, product_id, title, price, quantity)
VALUES ($1, $2, $3, $4, $5)
`
		for _, it := range items {
			if _, err := tx.Exec(ctx, itemQ, o.ID, it.ProductID, it.Title, it.Price, it.Quantity); err != nil {
				return err
			}
		}

		const clearQ = `DELETE FROM cart_items WHERE user_id = $1`
		if _, err := tx.Exec(ctx, clearQ, userID); err != nil {
			return err
		}

		o.Items = items
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

const orderColumns = `id, number, user_id, status, total, created_at, updated_at`

func (r *Repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`
	return r.list(ctx, q, userID, limit, offset)
}

func (r *Repository) ListAll(ctx context.Context, limit, offset int) ([]Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`
	return r.list(ctx, q, limit, offset)
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (*Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o := &Order{}
	if err := r.db.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.Number, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	const itemsQ = `
SELECT product_id, title, price, quantity
FROM order_items
WHERE order_id = $1
ORDER BY product_id
`
	rows, err := r.db.Query(ctx, itemsQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Title, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

// SetStatus applies an admin status change, enforcing the transition table
// against the current row inside the update.
func (r *Repository) SetStatus(ctx context.Context, id int64, to Status) (*Order, error) {
	cur, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, to) {
		return nil, errors.New("invalid status transition " + string(cur.Status) + " -> " + string(to))
	}

	const q = `
UPDATE orders SET status = $2, updated_at = NOW()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns
	o := &Order{}
	if err := r.db.QueryRow(ctx, q, id, string(to), string(cur.Status)).Scan(
		&o.ID, &o.Number, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a race with another transition; caller can retry.
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}
