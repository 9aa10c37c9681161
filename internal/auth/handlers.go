package auth

import (
	"net/http"
	"time"

	"minishop/internal/api"
	"minishop/pkg/config"
	"minishop/pkg/token"
)

type Handlers struct {
	Cfg config.Config
}

// Token exchanges an authenticated request (initData via the strict tier)
// for a short-lived bearer token, so the mini app doesn't have to resend
// initData on every call. Mounted behind RequireAuth.
func (h Handlers) Token(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFromContext(r.Context())
	if id == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	ttl := time.Duration(h.Cfg.Session.TokenTTLSeconds) * time.Second
	now := time.Now()
	signed, err := token.Issue(id.Session.ID, id.Session.TelegramID, string(id.Session.Role), h.Cfg.Session.JWTSecret, ttl, now)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "token issue failed")
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"token":     signed,
		"expiresAt": now.Add(ttl).UTC().Format(time.RFC3339),
		"user":      id.Session,
	})
}

// Me returns the reconciled session identity for the calling user.
func (h Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id := api.IdentityFromContext(r.Context())
	if id == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}
	api.WriteJSON(w, http.StatusOK, id.Session)
}
