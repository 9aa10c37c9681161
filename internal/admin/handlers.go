package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"minishop/internal/api"
	"minishop/internal/catalog"
	"minishop/internal/order"
	"minishop/internal/user"
)

// Handlers serve the admin panel. All routes are mounted behind
// RequireAuth + RequireAdmin; handlers assume a signed admin identity.
type Handlers struct {
	Users    *user.Repository
	Products *catalog.Repository
	Orders   *order.Repository
}

func (h Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	users, err := h.Users.List(r.Context(), limit, offset)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	type row struct {
		ID         int64     `json:"id"`
		TelegramID string    `json:"telegramId"`
		FirstName  string    `json:"firstName"`
		LastName   string    `json:"lastName,omitempty"`
		Username   string    `json:"username,omitempty"`
		Role       user.Role `json:"role"`
		IsBanned   bool      `json:"isBanned"`
		CreatedAt  string    `json:"createdAt"`
	}
	out := make([]row, 0, len(users))
	for _, u := range users {
		out = append(out, row{
			ID:         u.ID,
			TelegramID: u.TelegramID,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Username:   u.Username,
			Role:       u.Role,
			IsBanned:   u.IsBanned,
			CreatedAt:  u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": out, "limit": limit, "offset": offset})
}

func (h Handlers) BanUser(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, true)
}

func (h Handlers) UnbanUser(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, false)
}

func (h Handlers) setBanned(w http.ResponseWriter, r *http.Request, banned bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid user id")
		return
	}

	// An admin cannot ban themselves; banned admins could otherwise lock the
	// whole panel with one misclick.
	if self := api.IdentityFromContext(r.Context()); banned && self != nil && self.Session.ID == id {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "cannot ban yourself")
		return
	}

	if err := h.Users.SetBanned(r.Context(), id, banned); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type productRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"imageUrl"`
	Category    string `json:"category"`
	IsActive    *bool  `json:"isActive"`
}

func (p *productRequest) validate() (decimal.Decimal, bool, error) {
	if strings.TrimSpace(p.Title) == "" {
		return decimal.Zero, false, errors.New("title is required")
	}
	price, err := decimal.NewFromString(p.Price)
	if err != nil || price.IsNegative() {
		return decimal.Zero, false, errors.New("price must be a non-negative decimal string")
	}
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return price, active, nil
}

func (h Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	price, active, err := req.validate()
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	p, err := h.Products.Create(r.Context(), req.Title, req.Description, price, req.ImageURL, req.Category, active)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusCreated, p)
}

func (h Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid product id")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	price, active, err := req.validate()
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	p, err := h.Products.Update(r.Context(), id, req.Title, req.Description, price, req.ImageURL, req.Category, active)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, p)
}

func (h Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid product id")
		return
	}
	if err := h.Products.Delete(r.Context(), id); err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	orders, err := h.Orders.ListAll(r.Context(), limit, offset)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": orders, "limit": limit, "offset": offset})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h Handlers) PatchOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid order id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	to, err := order.ParseStatus(req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	o, err := h.Orders.SetStatus(r.Context(), id, to)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "order not found")
			return
		}
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}
	api.WriteJSON(w, http.StatusOK, o)
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
