package remote

import (
	"net/http"
	"sort"
	"sync"
)

// Session holds the remote API cookies of one browser session. It is safe
// for concurrent use; responses fold their Set-Cookie headers back in.
type Session struct {
	mu      sync.RWMutex
	cookies map[string]*http.Cookie
	changed map[string]*http.Cookie
}

// NewSession seeds a session from cookies forwarded by the browser.
func NewSession(cookies ...*http.Cookie) *Session {
	s := &Session{cookies: make(map[string]*http.Cookie, len(cookies))}
	for _, c := range cookies {
		if c != nil && c.Name != "" {
			s.cookies[c.Name] = c
		}
	}
	return s
}

// Get returns the value of the named cookie.
func (s *Session) Get(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cookies[name]
	if !ok {
		return "", false
	}
	return c.Value, true
}

// Cookies returns a snapshot of the session cookies ordered by name.
func (s *Session) Cookies() []*http.Cookie {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*http.Cookie, 0, len(s.cookies))
	for _, c := range s.cookies {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Session) attach(req *http.Request) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
}

// absorb stores cookies set by a response. A cookie with MaxAge < 0 is removed.
func (s *Session) absorb(resp *http.Response) []*http.Cookie {
	if s == nil || resp == nil {
		return nil
	}
	set := resp.Cookies()
	if len(set) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cookies == nil {
		s.cookies = make(map[string]*http.Cookie, len(set))
	}
	if s.changed == nil {
		s.changed = make(map[string]*http.Cookie, len(set))
	}
	for _, c := range set {
		s.changed[c.Name] = c
		if c.MaxAge < 0 {
			delete(s.cookies, c.Name)
			continue
		}
		s.cookies[c.Name] = c
	}
	return set
}

// Changed returns the cookies set by remote responses since the session was
// created, ordered by name. Deleted cookies are included with MaxAge < 0.
func (s *Session) Changed() []*http.Cookie {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*http.Cookie, 0, len(s.changed))
	for _, c := range s.changed {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
