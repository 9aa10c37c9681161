package api

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"minishop/internal/user"
	"minishop/pkg/config"
	"minishop/pkg/telegram"
	"minishop/pkg/token"
)

// Header carrying the raw Telegram initData string.
const InitDataHeader = "X-Telegram-Init-Data"

// Header carrying the debug bypass secret (non-production only).
const DebugAuthHeader = "X-Debug-Auth"

const debugTelegramID = "1000001"

// Authenticator holds the process-wide auth configuration and the identity
// store port. Config is immutable after startup; the store is the only
// side-effecting dependency in the stack.
type Authenticator struct {
	Cfg   config.Config
	Users user.Store

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func NewAuthenticator(cfg config.Config, users user.Store) *Authenticator {
	return &Authenticator{Cfg: cfg, Users: users}
}

func (a *Authenticator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// claim is the outcome of the pure verification pipeline, before the single
// store call. No partial identity ever leaves the middleware: either the
// whole pipeline plus reconcile succeeds, or nothing is attached.
type claim struct {
	profile user.Profile
	role    user.Role
}

// resolveRole recomputes the role from the allow-list on every request;
// allow-list membership may change between deploys and must not be cached in
// the stored record alone.
func (a *Authenticator) resolveRole(telegramID string) user.Role {
	if a.Cfg.Telegram.IsAdminID(telegramID) {
		return user.RoleAdmin
	}
	return user.RoleUser
}

// verifyInitData runs the strict pipeline: signature, freshness, parse, role.
// It writes nothing; failures come back as coded errors.
func (a *Authenticator) verifyInitData(raw string) (*claim, *APIError) {
	if a.Cfg.Telegram.BotToken == "" {
		// Config fault, not a client fault. Surfaced lazily so deployments
		// that only mount the soft tier still boot.
		return nil, &APIError{Code: "INTERNAL", Message: "auth not configured"}
	}
	if !telegram.Verify(raw, a.Cfg.Telegram.BotToken) {
		return nil, &APIError{Code: "UNAUTHORIZED", Message: "invalid init data"}
	}
	if !telegram.Fresh(telegram.AuthDate(raw), a.Cfg.Telegram.AuthTTLSeconds, a.now().Unix()) {
		return nil, &APIError{Code: "UNAUTHORIZED", Message: "init data expired"}
	}
	return a.parseClaim(raw)
}

// parseClaim is the unsigned tail of the pipeline, shared with the soft tier.
func (a *Authenticator) parseClaim(raw string) (*claim, *APIError) {
	u := telegram.ParseUser(raw)
	if u == nil {
		return nil, &APIError{Code: "UNAUTHORIZED", Message: "invalid init data"}
	}
	return &claim{
		profile: user.Profile{
			TelegramID: u.TelegramID(),
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Username:   u.Username,
			PhotoURL:   u.PhotoURL,
		},
		role: a.resolveRole(u.TelegramID()),
	}, nil
}

// debugClaim returns the canned bypass identity when, and only when, all
// three gates hold. Production mode is checked first and unconditionally so
// no flag combination can open the bypass in prod.
func (a *Authenticator) debugClaim(r *http.Request) *claim {
	if a.Cfg.AppEnv == "prod" {
		return nil
	}
	if !a.Cfg.Debug.Enabled || a.Cfg.Debug.Secret == "" {
		return nil
	}
	presented := r.Header.Get(DebugAuthHeader)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(a.Cfg.Debug.Secret)) != 1 {
		return nil
	}

	role := user.RoleUser
	if a.Cfg.Debug.AsAdmin {
		role = user.RoleAdmin
	}
	return &claim{
		profile: user.Profile{TelegramID: debugTelegramID, FirstName: "Debug"},
		role:    role,
	}
}

// reconcile performs the one store call of the stack and classifies its
// failure modes for the blocking tiers.
func (a *Authenticator) reconcile(r *http.Request, c *claim) (*user.Session, *APIError) {
	sess, err := user.Reconcile(r.Context(), a.Users, c.profile, c.role)
	if err != nil {
		if errors.Is(err, user.ErrBanned) {
			return nil, &APIError{Code: "FORBIDDEN", Message: "account banned"}
		}
		log.Printf("auth reconcile failed telegram_id=%s err=%v", c.profile.TelegramID, err)
		return nil, &APIError{Code: "INTERNAL", Message: "internal error"}
	}
	return sess, nil
}

func statusFor(e *APIError) int {
	switch e.Code {
	case "UNAUTHORIZED":
		return http.StatusUnauthorized
	case "FORBIDDEN":
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RequireAuth is the strict tier: a request passes only with a
// signature-checked, fresh initData payload (or a valid session token, or
// the guarded debug bypass). Every failure halts the request.
//
// Signature, freshness and parse failures all answer 401 UNAUTHORIZED; a
// banned account answers 403 so clients can tell "log in again" from "you
// are blocked".
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := a.debugClaim(r); c != nil {
			a.finish(w, r, next, c)
			return
		}

		// Session token minted by /v1/auth/token.
		if authz := strings.TrimSpace(r.Header.Get("Authorization")); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			a.serveWithSessionToken(w, r, next, strings.TrimSpace(authz[7:]))
			return
		}

		raw := r.Header.Get(InitDataHeader)
		if raw == "" {
			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
			return
		}

		c, apiErr := a.verifyInitData(raw)
		if apiErr != nil {
			WriteError(w, statusFor(apiErr), apiErr.Code, apiErr.Message)
			return
		}
		a.finish(w, r, next, c)
	})
}

// SoftAuth trusts the payload's user object without checking the signature
// or freshness. This is a deliberate trust downgrade for low-risk
// operations; identities it attaches are tagged TrustUnsigned and are
// rejected by RequireAdmin.
func (a *Authenticator) SoftAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(InitDataHeader)
		if raw == "" {
			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials")
			return
		}

		c, apiErr := a.parseClaim(raw)
		if apiErr != nil {
			WriteError(w, statusFor(apiErr), apiErr.Code, apiErr.Message)
			return
		}

		sess, apiErr := a.reconcile(r, c)
		if apiErr != nil {
			WriteError(w, statusFor(apiErr), apiErr.Code, apiErr.Message)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), &Identity{Session: sess, Trust: TrustUnsigned})))
	})
}

// OptionalAuth attaches an identity when the full strict pipeline succeeds
// and otherwise lets the request through anonymous. It never blocks and
// never 500s: a store outage, a stale payload or a banned account all
// degrade to "no identity" here.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := a.debugClaim(r)
		if c == nil {
			raw := r.Header.Get(InitDataHeader)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			var apiErr *APIError
			c, apiErr = a.verifyInitData(raw)
			if apiErr != nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		sess, err := user.Reconcile(r.Context(), a.Users, c.profile, c.role)
		if err != nil {
			if !errors.Is(err, user.ErrBanned) {
				log.Printf("optional auth degraded telegram_id=%s err=%v", c.profile.TelegramID, err)
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), &Identity{Session: sess, Trust: TrustSigned})))
	})
}

// RequireAdmin gates on the already-attached identity; no store access. Must
// be mounted after RequireAuth. Unsigned identities do not pass: the admin
// surface never trusts a claim the signature check did not cover.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil || id.Trust != TrustSigned {
			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		if id.Session.Role != user.RoleAdmin {
			WriteError(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) serveWithSessionToken(w http.ResponseWriter, r *http.Request, next http.Handler, tok string) {
	claims, err := token.Verify(tok, a.Cfg.Session.JWTSecret, a.now())
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token")
		return
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token")
		return
	}

	// Role and ban state come from the store, not the token. A deleted user
	// means the credential is dead; a store outage is our fault, not theirs.
	u, err := a.Users.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token")
			return
		}
		log.Printf("session token user lookup failed id=%d err=%v", id, err)
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if u.IsBanned {
		WriteError(w, http.StatusForbidden, "FORBIDDEN", "account banned")
		return
	}
	next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), &Identity{Session: u.Session(), Trust: TrustSigned})))
}

func (a *Authenticator) finish(w http.ResponseWriter, r *http.Request, next http.Handler, c *claim) {
	sess, apiErr := a.reconcile(r, c)
	if apiErr != nil {
		WriteError(w, statusFor(apiErr), apiErr.Code, apiErr.Message)
		return
	}
	next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), &Identity{Session: sess, Trust: TrustSigned})))
}
