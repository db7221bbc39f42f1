package remote

import "context"

type sessionCtxKey struct{}

// WithSession stores sess on the context.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sess)
}

// SessionFrom returns the session stored on ctx, or an empty one.
func SessionFrom(ctx context.Context) *Session {
	if sess, ok := ctx.Value(sessionCtxKey{}).(*Session); ok && sess != nil {
		return sess
	}
	return NewSession()
}
