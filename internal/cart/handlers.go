package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"minishop/internal/api"
)

// Store is the cart persistence port; *Repository implements it.
type Store interface {
	Items(ctx context.Context, userID int64) ([]Item, error)
	SetQuantity(ctx context.Context, userID, productID int64, quantity int) error
	Remove(ctx context.Context, userID, productID int64) error
}

type Handlers struct {
	Repo Store
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFromContext(r.Context())
	if id == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	items, err := h.Repo.Items(r.Context(), id.Session.ID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": Total(items),
	})
}

type putItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h Handlers) PutItem(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFromContext(r.Context())
	if id == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid product id")
		return
	}

	var req putItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 999 {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "quantity must be between 1 and 999")
		return
	}

	if err := h.Repo.SetQuantity(r.Context(), id.Session.ID, productID, req.Quantity); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFromContext(r.Context())
	if id == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid product id")
		return
	}

	if err := h.Repo.Remove(r.Context(), id.Session.ID, productID); err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
