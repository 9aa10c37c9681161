package api

import (
	"context"

	"minishop/internal/user"
)

// Trust tags how the request identity was established.
type Trust int

const (
	// TrustSigned: the identity came from a signature-checked initData payload,
	// a valid session token, or the guarded debug bypass.
	TrustSigned Trust = iota
	// TrustUnsigned: the identity came from the soft tier, which parses the
	// payload without checking the signature. Treat as a claim, not a proof.
	TrustUnsigned
)

// Identity is the value attached to request context by the auth middleware.
// Attachment is all-or-nothing: Session is never nil when an Identity is
// present.
type Identity struct {
	Session *user.Session
	Trust   Trust
}

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func IdentityFromContext(ctx context.Context) *Identity {
	v := ctx.Value(ctxKeyIdentity)
	if v == nil {
		return nil
	}
	id, _ := v.(*Identity)
	return id
}
