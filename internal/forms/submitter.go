package forms

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/xpro-storefront/internal/common"
	"github.com/noah-isme/xpro-storefront/internal/remote"
)

// ErrRequestPending is returned when a form is submitted while a previous
// submission is still in flight.
var ErrRequestPending = common.NewAppError("REQUEST_PENDING", "a request is already in progress", http.StatusConflict, nil)

// Submitter serializes submissions of one form. Invalid forms never reach
// the remote API, and the pending flag is always released.
type Submitter struct {
	// RemoteFields maps remote field names onto form field names. Remote
	// errors on other fields are reported as general errors. Nil keeps
	// every remote field as-is.
	RemoteFields map[string]string
	Logger       zerolog.Logger

	mu      sync.Mutex
	pending bool
}

// Pending reports whether a submission is in flight.
func (s *Submitter) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Submitter) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return false
	}
	s.pending = true
	return true
}

func (s *Submitter) release() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
}

// Submit validates form and runs send. Remote rejections (4xx other than
// 401 and 403) come back as *common.ValidationError. When ctx is cancelled before send returns its
// result is discarded and ctx.Err() is returned.
func (s *Submitter) Submit(ctx context.Context, form any, send func(context.Context) error) error {
	if form != nil {
		if err := Validate(form); err != nil {
			return err
		}
	}
	if !s.acquire() {
		return ErrRequestPending
	}
	defer s.release()

	return finish(ctx, send(ctx), s.RemoteFields, s.Logger)
}

// Guard applies the Submitter rules to many forms at once, keyed by caller
// (typically session key plus form name). Idle keys hold no memory.
type Guard struct {
	RemoteFields map[string]string
	Logger       zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// Locker takes a lock shared between storefront instances. Guard consults
// it after the local pending check.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// lockTTL bounds how long a crashed instance can block a form.
const lockTTL = 30 * time.Second

type lockerKey struct{}

// WithLocker makes Guard use l for submissions made under ctx.
func WithLocker(ctx context.Context, l Locker) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, lockerKey{}, l)
}

// LockerMiddleware installs l on every request.
func LockerMiddleware(l Locker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLocker(r.Context(), l)))
		})
	}
}

// Pending reports whether key has a submission in flight.
func (g *Guard) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[key]
	return ok
}

// Submit behaves like Submitter.Submit for the form identified by key.
func (g *Guard) Submit(ctx context.Context, key string, form any, send func(context.Context) error) error {
	if form != nil {
		if err := Validate(form); err != nil {
			return err
		}
	}
	g.mu.Lock()
	if _, busy := g.pending[key]; busy {
		g.mu.Unlock()
		return ErrRequestPending
	}
	if g.pending == nil {
		g.pending = map[string]struct{}{}
	}
	g.pending[key] = struct{}{}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.pending, key)
		g.mu.Unlock()
	}()
	if l, ok := ctx.Value(lockerKey{}).(Locker); ok {
		release, held, err := l.TryLock(ctx, key, lockTTL)
		switch {
		case err != nil:
			g.Logger.Warn().Err(err).Str("form", key).Msg("form lock unavailable, using local guard only")
		case !held:
			return ErrRequestPending
		default:
			defer release()
		}
	}
	return finish(ctx, send(ctx), g.RemoteFields, g.Logger)
}

func finish(ctx context.Context, err error, remoteFields map[string]string, logger zerolog.Logger) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if err != nil && !errors.Is(err, ctxErr) {
			logger.Debug().Err(err).Msg("dropping result of cancelled submission")
		}
		return ctxErr
	}
	var reqErr *remote.RequestError
	if errors.As(err, &reqErr) && rejected(reqErr.Status) {
		return reqErr.Validation(remoteFields)
	}
	return err
}

// rejected reports whether status means the server refused the submitted
// values, as opposed to refusing the caller or failing.
func rejected(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false
	}
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}
