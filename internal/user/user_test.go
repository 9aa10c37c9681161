package user

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type memStore struct {
	seq   int64
	byTID map[string]*User
	fail  error
}

func newMemStore() *memStore {
	return &memStore{byTID: map[string]*User{}}
}

func (s *memStore) Upsert(ctx context.Context, p Profile, role Role) (*User, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	u, ok := s.byTID[p.TelegramID]
	if !ok {
		s.seq++
		u = &User{ID: s.seq, TelegramID: p.TelegramID}
		s.byTID[p.TelegramID] = u
	}
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.Username = p.Username
	u.PhotoURL = p.PhotoURL
	u.Role = role
	cp := *u
	return &cp, nil
}

func (s *memStore) FindByID(ctx context.Context, id int64) (*User, error) {
	for _, u := range s.byTID {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func TestReconcile_CreateThenUpdate(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	s1, err := Reconcile(ctx, store, Profile{TelegramID: "42", FirstName: "Ada"}, RoleUser)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	s2, err := Reconcile(ctx, store, Profile{TelegramID: "42", FirstName: "Ada B."}, RoleAdmin)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if s1.ID != s2.ID {
		t.Fatalf("internal id not stable: %d vs %d", s1.ID, s2.ID)
	}
	if len(store.byTID) != 1 {
		t.Fatalf("expected one record, got %d", len(store.byTID))
	}
	if s2.FirstName != "Ada B." || s2.Role != RoleAdmin {
		t.Fatalf("profile/role not refreshed: %+v", s2)
	}
}

func TestReconcile_BanPrecedence(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	if _, err := Reconcile(ctx, store, Profile{TelegramID: "42", FirstName: "Ada"}, RoleUser); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	store.byTID["42"].IsBanned = true

	// Banned wins regardless of role.
	for _, role := range []Role{RoleUser, RoleAdmin} {
		_, err := Reconcile(ctx, store, Profile{TelegramID: "42", FirstName: "Ada"}, role)
		if !errors.Is(err, ErrBanned) {
			t.Fatalf("role %s: expected ErrBanned, got %v", role, err)
		}
	}

	// The login path never clears the flag.
	if !store.byTID["42"].IsBanned {
		t.Fatalf("reconcile cleared the ban flag")
	}
}

func TestReconcile_StoreErrorPassesThrough(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("boom")
	_, err := Reconcile(context.Background(), store, Profile{TelegramID: "42", FirstName: "Ada"}, RoleUser)
	if err == nil || errors.Is(err, ErrBanned) {
		t.Fatalf("expected the store error, got %v", err)
	}
}

func TestSession_OmitsEmptyOptionalFields(t *testing.T) {
	u := &User{ID: 1, TelegramID: "42", FirstName: "Ada", Role: RoleUser}
	b, err := json.Marshal(u.Session())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{"lastName", "username", "photoUrl"} {
		if strings.Contains(string(b), key) {
			t.Fatalf("empty optional field %q serialized: %s", key, b)
		}
	}
}
