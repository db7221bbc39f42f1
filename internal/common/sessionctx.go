package common

import "context"

type ctxKey string

const (
	sessionKey ctxKey = "web/session-key"
	ownerKey   ctxKey = "web/owner-key"
)

// WithSessionKey stores the hashed browser session identifier on the context.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKey, key)
}

// SessionKey extracts the hashed session identifier from the context if present.
func SessionKey(ctx context.Context) (string, bool) {
	v := ctx.Value(sessionKey)
	if v == nil {
		return "", false
	}
	key, ok := v.(string)
	return key, ok
}

// WithOwnerKey stores who is acting on the request. Anonymous visitors are
// identified by their CSRF token or, failing that, their address.
func WithOwnerKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ownerKey, key)
}

// OwnerKey returns the request owner, falling back to the session key.
func OwnerKey(ctx context.Context) (string, bool) {
	if key, ok := ctx.Value(ownerKey).(string); ok && key != "" {
		return key, true
	}
	return SessionKey(ctx)
}

// FormKey scopes form to the request owner. ok is false when the owner is
// unknown.
func FormKey(ctx context.Context, form string) (key string, ok bool) {
	owner, ok := OwnerKey(ctx)
	if !ok {
		return "", false
	}
	return owner + ":" + form, true
}
