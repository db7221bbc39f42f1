package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/xpro-storefront/internal/common"
)

// CSRF protects the browser-facing routes with the double-submit technique.
// The token cookie is the one the remote API issues, so the same value is
// forwarded upstream in the CSRF header.
type CSRF struct {
	Header string
	Cookie string

	// Issue mints a token cookie on safe requests that arrive without one.
	Issue          bool
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

// Middleware enforces that unsafe requests carry a header matching the
// token cookie.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	headerName := strings.TrimSpace(c.Header)
	if headerName == "" {
		headerName = "X-CSRFTOKEN"
	}
	cookieName := strings.TrimSpace(c.Cookie)
	if cookieName == "" {
		cookieName = "csrftoken"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, cookieErr := r.Cookie(cookieName)
		hasCookie := cookieErr == nil && strings.TrimSpace(cookie.Value) != ""

		if safeMethod(r.Method) {
			if !hasCookie && c.Issue {
				token := NewToken()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    token,
					Path:     "/",
					Domain:   c.CookieDomain,
					Secure:   c.CookieSecure,
					SameSite: c.CookieSameSite,
				})
				r.AddCookie(&http.Cookie{Name: cookieName, Value: token})
			}
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(headerName))
		if token == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF_FAILED", "missing csrf token", nil)
			return
		}
		if !hasCookie {
			common.JSONError(w, http.StatusForbidden, "CSRF_FAILED", "missing csrf cookie", nil)
			return
		}
		if subtleConstantTimeCompare(token, cookie.Value) != 1 {
			common.JSONError(w, http.StatusForbidden, "CSRF_FAILED", "invalid csrf token", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewToken returns a 64 character alphanumeric token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

func subtleConstantTimeCompare(a, b string) int {
	if len(a) != len(b) {
		return 0
	}
	if len(a) == 0 {
		return 1
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b))
}
