package user

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ErrBanned is returned by Reconcile for a banned account. It is an
// authorization failure, not an authentication failure: callers must map it
// to access-denied, never to auth-required.
var ErrBanned = errors.New("user is banned")

// ErrNotFound is returned by admin operations targeting a missing user.
var ErrNotFound = errors.New("user not found")

// User is the durable record, keyed uniquely by TelegramID. Profile fields
// and role are refreshed on every successful authentication; IsBanned is
// owned by admin actions and never written by the login path.
type User struct {
	ID         int64
	TelegramID string
	FirstName  string
	LastName   string
	Username   string
	PhotoURL   string
	Role       Role
	IsBanned   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Profile carries the identity fields extracted from a verified (or, in the
// soft tier, merely parsed) initData payload.
type Profile struct {
	TelegramID string
	FirstName  string
	LastName   string
	Username   string
	PhotoURL   string
}

// Session is the per-request identity attached to context after a successful
// authentication. Optional fields are omitted from JSON rather than sent as
// empty strings.
type Session struct {
	ID         int64  `json:"id"`
	TelegramID string `json:"telegramId"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Username   string `json:"username,omitempty"`
	PhotoURL   string `json:"photoUrl,omitempty"`
	Role       Role   `json:"role"`
}

// Store is the identity persistence port. Upsert must be atomic on the
// telegram_id unique key: insert if absent, else update profile and role
// fields only (never is_banned).
type Store interface {
	Upsert(ctx context.Context, p Profile, role Role) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}

// Reconcile maps an external identity into the local user record: one atomic
// upsert, then the ban check, then the Session projection. Called exactly
// once per authenticated request, identically across all auth tiers.
func Reconcile(ctx context.Context, store Store, p Profile, role Role) (*Session, error) {
	u, err := store.Upsert(ctx, p, role)
	if err != nil {
		return nil, err
	}
	if u.IsBanned {
		return nil, ErrBanned
	}
	return u.Session(), nil
}

// Session projects the stored record into the request-scoped identity.
func (u *User) Session() *Session {
	return &Session{
		ID:         u.ID,
		TelegramID: u.TelegramID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
		PhotoURL:   u.PhotoURL,
		Role:       u.Role,
	}
}
