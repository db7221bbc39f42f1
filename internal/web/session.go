// Package web serves the browser-facing storefront routes. Each request is
// bound to the caller's remote API session, whose cookies are relayed in
// both directions.
package web

import (
	"net/http"

	"github.com/noah-isme/xpro-storefront/internal/common"
	"github.com/noah-isme/xpro-storefront/internal/remote"
)

// Sessions binds a remote.Session to each request.
type Sessions struct {
	SessionCookie  string
	CSRFCookie     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

func (s Sessions) sessionCookie() string {
	if s.SessionCookie == "" {
		return "sessionid"
	}
	return s.SessionCookie
}

func (s Sessions) csrfCookie() string {
	if s.CSRFCookie == "" {
		return remote.DefaultCSRFCookie
	}
	return s.CSRFCookie
}

// Middleware forwards the session and CSRF cookies to the remote session and
// writes cookies the remote API changed back to the browser. The cache key
// for the session is the SHA-256 of its cookie.
func (s Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var forwarded []*http.Cookie
		for _, name := range []string{s.sessionCookie(), s.csrfCookie()} {
			if c, err := r.Cookie(name); err == nil && c.Value != "" {
				forwarded = append(forwarded, &http.Cookie{Name: c.Name, Value: c.Value})
			}
		}
		sess := remote.NewSession(forwarded...)
		ctx := remote.WithSession(r.Context(), sess)
		if v, ok := sess.Get(s.sessionCookie()); ok {
			ctx = common.WithSessionKey(ctx, common.Sha256Hex(v))
		}
		ctx = common.WithOwnerKey(ctx, s.owner(r, sess))

		cw := &cookieWriter{ResponseWriter: w, sess: sess, cfg: s}
		next.ServeHTTP(cw, r.WithContext(ctx))
		cw.relay()
	})
}

// owner identifies who is submitting forms on the request: the session when
// there is one, otherwise the CSRF token, otherwise the client address.
func (s Sessions) owner(r *http.Request, sess *remote.Session) string {
	if v, ok := sess.Get(s.sessionCookie()); ok {
		return common.Sha256Hex(v)
	}
	if token, ok := sess.Get(s.csrfCookie()); ok {
		return "csrf:" + common.Sha256Hex(token)
	}
	return "ip:" + common.ClientIP(r)
}

// browserCookie rewrites a cookie set by the remote API for our domain.
func (s Sessions) browserCookie(c *http.Cookie) *http.Cookie {
	out := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     "/",
		Domain:   s.CookieDomain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   s.CookieSecure,
		SameSite: s.CookieSameSite,
	}
	// Scripts read the CSRF token to echo it in the request header.
	out.HttpOnly = c.Name != s.csrfCookie()
	return out
}

// cookieWriter adds Set-Cookie headers for changed remote cookies before the
// response header is sent.
type cookieWriter struct {
	http.ResponseWriter
	sess    *remote.Session
	cfg     Sessions
	relayed bool
}

func (cw *cookieWriter) relay() {
	if cw.relayed {
		return
	}
	cw.relayed = true
	for _, c := range cw.sess.Changed() {
		http.SetCookie(cw.ResponseWriter, cw.cfg.browserCookie(c))
	}
}

func (cw *cookieWriter) WriteHeader(code int) {
	cw.relay()
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *cookieWriter) Write(p []byte) (int, error) {
	cw.relay()
	return cw.ResponseWriter.Write(p)
}

func (cw *cookieWriter) Unwrap() http.ResponseWriter { return cw.ResponseWriter }
