package favorite

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Add(ctx context.Context, userID, productID int64) error {
	const q = `
INSERT INTO favorites (user_id, product_id)
VALUES ($1, $2)
ON CONFLICT (user_id, product_id) DO NOTHING
`
	_, err := r.db.Exec(ctx, q, userID, productID)
	return err
}

func (r *Repository) Remove(ctx context.Context, userID, productID int64) error {
	const q = `DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`
	_, err := r.db.Exec(ctx, q, userID, productID)
	return err
}

func (r *Repository) ProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	const q = `SELECT product_id FROM favorites WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
