package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const productColumns = `id, title, COALESCE(description,''), price, COALESCE(image_url,''), COALESCE(category,''), is_active, created_at, updated_at`

func (r *Repository) List(ctx context.Context, f ListFilter) ([]Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE is_active
  AND ($1 = '' OR category = $1)
  AND ($2 = '' OR title ILIKE '%' || $2 || '%')
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`
	rows, err := r.db.Query(ctx, q, f.Category, f.Query, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows.Scan, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (*Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p := &Product{}
	if err := scanProduct(r.db.QueryRow(ctx, q, id).Scan, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, title, description string, price decimal.Decimal, imageURL, category string, active bool) (*Product, error) {
	const q = `
INSERT INTO products (title, description, price, image_url, category, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + productColumns
	p := &Product{}
	if err := scanProduct(r.db.QueryRow(ctx, q, title, description, price, imageURL, category, active).Scan, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) Update(ctx context.Context, id int64, title, description string, price decimal.Decimal, imageURL, category string, active bool) (*Product, error) {
	const q = `
UPDATE products SET
  title = $2,
  description = $3,
  price = $4,
  image_url = $5,
  category = $6,
  is_active = $7,
  updated_at = NOW()
WHERE id = $1
RETURNING ` + productColumns
	p := &Product{}
	if err := scanProduct(r.db.QueryRow(ctx, q, id, title, description, price, imageURL, category, active).Scan, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM products WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func scanProduct(scan func(dest ...any) error, p *Product) error {
	return scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.ImageURL, &p.Category, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
}
