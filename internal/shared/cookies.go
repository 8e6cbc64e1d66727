package shared

import (
	"net/http"
	"time"
)

// CookieManager writes and clears session cookies with fixed security
// attributes. The cookie lifetime is intentionally shorter than the token
// lifetime it carries; the token's embedded expiry is authoritative.
type CookieManager struct {
	ttl    time.Duration
	secure bool
}

// NewCookieManager constructs a CookieManager. secure should be true only in
// production-like environments.
func NewCookieManager(ttl time.Duration, secure bool) *CookieManager {
	return &CookieManager{ttl: ttl, secure: secure}
}

// CookieOption overrides a single default attribute.
type CookieOption func(*http.Cookie)

// WithMaxAge overrides the cookie lifetime in seconds.
func WithMaxAge(seconds int) CookieOption {
	return func(c *http.Cookie) { c.MaxAge = seconds }
}

// WithPath overrides the cookie path.
func WithPath(path string) CookieOption {
	return func(c *http.Cookie) { c.Path = path }
}

// WithSameSite overrides the SameSite attribute.
func WithSameSite(mode http.SameSite) CookieOption {
	return func(c *http.Cookie) { c.SameSite = mode }
}

// Set writes a cookie with the default attributes, then applies overrides on
// top so callers extend rather than replace the defaults.
func (cm *CookieManager) Set(w http.ResponseWriter, name, value string, opts ...CookieOption) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cm.ttl.Seconds()),
		HttpOnly: true,
		Secure:   cm.secure,
		SameSite: http.SameSiteStrictMode,
	}
	for _, opt := range opts {
		opt(cookie)
	}
	http.SetCookie(w, cookie)
}

// Clear expires the named cookie immediately.
func (cm *CookieManager) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cm.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Get reads the named cookie value from the request.
func (cm *CookieManager) Get(r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
