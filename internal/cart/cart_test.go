package cart

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"minishop/internal/api"
	"minishop/internal/user"
)

func TestTotal(t *testing.T) {
	items := []Item{
		{Price: decimal.RequireFromString("19.99"), Quantity: 2, LineTotal: decimal.RequireFromString("39.98")},
		{Price: decimal.RequireFromString("0.01"), Quantity: 3, LineTotal: decimal.RequireFromString("0.03")},
	}
	if got := Total(items); !got.Equal(decimal.RequireFromString("40.01")) {
		t.Fatalf("expected 40.01, got %s", got)
	}
}

func TestTotal_Empty(t *testing.T) {
	if got := Total(nil); !got.Equal(decimal.Zero) {
		t.Fatalf("expected zero, got %s", got)
	}
}

type fakeStore struct {
	setErr error
}

func (s *fakeStore) Items(ctx context.Context, userID int64) ([]Item, error) { return nil, nil }

func (s *fakeStore) SetQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	return s.setErr
}

func (s *fakeStore) Remove(ctx context.Context, userID, productID int64) error { return nil }

func putItem(store Store, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h := Handlers{Repo: store}
	r.Put("/cart/items/{productID}", h.PutItem)

	req := httptest.NewRequest(http.MethodPut, "/cart/items/99", strings.NewReader(body))
	id := &api.Identity{Session: &user.Session{ID: 1, TelegramID: "42", Role: user.RoleUser}, Trust: api.TrustSigned}
	req = req.WithContext(api.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPutItem_UnknownProductIsNotFound(t *testing.T) {
	rec := putItem(&fakeStore{setErr: ErrProductNotFound}, `{"quantity":2}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown product: expected 404, got %d", rec.Code)
	}
}

func TestPutItem_StoreOutageIsInternal(t *testing.T) {
	rec := putItem(&fakeStore{setErr: errors.New("connection refused")}, `{"quantity":2}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("store outage: expected 500, got %d", rec.Code)
	}
}

func TestPutItem_RejectsNonPositiveQuantity(t *testing.T) {
	for _, body := range []string{`{"quantity":0}`, `{"quantity":-1}`, `{"quantity":1000}`} {
		rec := putItem(&fakeStore{}, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}
