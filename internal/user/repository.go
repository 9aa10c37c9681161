package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Upsert(ctx context.Context, p Profile, role Role) (*User, error) {
	const q = `
INSERT INTO users (telegram_id, first_name, last_name, username, photo_url, role)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (telegram_id) DO UPDATE SET
  first_name = EXCLUDED.first_name,
  last_name = EXCLUDED.last_name,
  username = EXCLUDED.username,
  photo_url = EXCLUDED.photo_url,
  role = EXCLUDED.role,
  updated_at = NOW()
RETURNING id, telegram_id, first_name, COALESCE(last_name,''), COALESCE(username,''), COALESCE(photo_url,''), role, is_banned, created_at, updated_at
`
	u := &User{}
	if err := r.db.QueryRow(ctx, q, p.TelegramID, p.FirstName, p.LastName, p.Username, p.PhotoURL, string(role)).Scan(
		&u.ID, &u.TelegramID, &u.FirstName, &u.LastName, &u.Username, &u.PhotoURL, &u.Role, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*User, error) {
	const q = `
SELECT id, telegram_id, first_name, COALESCE(last_name,''), COALESCE(username,''), COALESCE(photo_url,''), role, is_banned, created_at, updated_at
FROM users
WHERE id = $1
`
	u := &User{}
	if err := r.db.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.TelegramID, &u.FirstName, &u.LastName, &u.Username, &u.PhotoURL, &u.Role, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]User, error) {
	const q = `
SELECT id, telegram_id, first_name, COALESCE(last_name,''), COALESCE(username,''), COALESCE(photo_url,''), role, is_banned, created_at, updated_at
FROM users
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`
	rows, err := r.db.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.FirstName, &u.LastName, &u.Username, &u.PhotoURL, &u.Role, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetBanned flips the ban flag. Admin-only operation; the auth path never
// writes this column.
func (r *Repository) SetBanned(ctx context.Context, id int64, banned bool) error {
	const q = `UPDATE users SET is_banned = $2, updated_at = NOW() WHERE id = $1`
	ct, err := r.db.Exec(ctx, q, id, banned)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
