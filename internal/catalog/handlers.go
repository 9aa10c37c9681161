package catalog

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"minishop/internal/api"
	"minishop/internal/favorite"
)

// Store is the catalog read port; *Repository implements it.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
}

type Handlers struct {
	Repo      Store
	Favorites *favorite.Repository
}

// List serves the public catalog. Mounted under optional auth: when an
// identity is present the response marks which products the caller favorited.
func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	f := ListFilter{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
		Limit:    queryInt(r, "limit", 20),
		Offset:   queryInt(r, "offset", 0),
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	items, err := h.Repo.List(r.Context(), f)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	resp := map[string]any{"items": items, "limit": f.Limit, "offset": f.Offset}
	if ids := h.favoriteIDs(r); ids != nil {
		resp["favoriteIds"] = ids
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid product id")
		return
	}

	p, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
			return
		}
		// A store outage must not masquerade as a missing product.
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if !p.IsActive {
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

func (h Handlers) favoriteIDs(r *http.Request) []int64 {
	id := api.IdentityFromContext(r.Context())
	if id == nil || h.Favorites == nil {
		return nil
	}
	ids, err := h.Favorites.ProductIDs(r.Context(), id.Session.ID)
	if err != nil {
		// Favorites decoration is best effort on a public page.
		return nil
	}
	return ids
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
