package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCSRFMiddlewareBlocksMissingToken(t *testing.T) {
	csrf := CSRF{}
	handler := csrf.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCSRFMiddlewareAllowsValidToken(t *testing.T) {
	csrf := CSRF{Header: "X-CSRFTOKEN", Cookie: "csrftoken"}
	handler := csrf.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPatch, "/protected", nil)
	token := "secure-token"
	req.Header.Set("X-CSRFTOKEN", token)
	req.AddCookie(&http.Cookie{Name: "csrftoken", Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestCSRFMiddlewareRejectsMismatch(t *testing.T) {
	csrf := CSRF{}
	handler := csrf.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("X-CSRFTOKEN", "aaaa")
	req.AddCookie(&http.Cookie{Name: "csrftoken", Value: "bbbb"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCSRFMiddlewareIssuesTokenOnSafeRequest(t *testing.T) {
	csrf := CSRF{Issue: true}
	var seen string
	handler := csrf.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("csrftoken"); err == nil {
			seen = c.Value
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app/products", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "csrftoken" || len(cookies[0].Value) != 64 {
		t.Fatalf("expected a 64 char csrftoken cookie, got %#v", cookies)
	}
	if seen != cookies[0].Value {
		t.Fatalf("downstream should see the issued token, got %q", seen)
	}
	if cookies[0].HttpOnly {
		t.Fatal("token cookie must be readable by scripts")
	}

	req := httptest.NewRequest(http.MethodGet, "/app/products", nil)
	req.AddCookie(&http.Cookie{Name: "csrftoken", Value: "existing"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("existing token must not be replaced")
	}
}
