package session

import (
	"errors"
	"net/http"
	"regexp"
	"time"
)

// DefaultCookieName is the persisted carrier key for the current org slug.
const DefaultCookieName = "crewhq_org"

// ErrUnsafeSlug is returned when a slug fails the carrier-safety check.
// Semantic validity (does the slug resolve to a tenant) is the resolver's
// concern, not the store's.
var ErrUnsafeSlug = errors.New("slug contains characters unsafe for the cookie carrier")

// slugPattern is the only shape allowed into the carrier. It matches the
// backend's slug format and rules out cookie injection by construction.
var slugPattern = regexp.MustCompile(`^[a-z0-9-]{1,100}$`)

// SlugStore owns the persisted tenant-slug carrier. Reads are side-effect
// free; Write and Clear touch only the outgoing Set-Cookie directive and
// never mutate the incoming request's view of the slug.
type SlugStore struct {
	cookieName string
	secure     bool
	maxAge     time.Duration
}

// NewSlugStore creates a store for the given cookie name. secure marks the
// cookie Secure for TLS-only origins.
func NewSlugStore(cookieName string, secure bool, maxAge time.Duration) *SlugStore {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &SlugStore{cookieName: cookieName, secure: secure, maxAge: maxAge}
}

// Read returns the slug from the request's carrier, or "" when absent or
// unsafe. The value is untrusted input: it may be stale or forged, and every
// consumer must treat it as presence, not validity.
func (s *SlugStore) Read(r *http.Request) string {
	c, err := r.Cookie(s.cookieName)
	if err != nil {
		return ""
	}
	if !slugPattern.MatchString(c.Value) {
		return ""
	}
	return c.Value
}

// Write sets the slug on the outgoing response. It rejects values that could
// break out of the cookie attribute.
func (s *SlugStore) Write(w http.ResponseWriter, slug string) error {
	if !slugPattern.MatchString(slug) {
		return ErrUnsafeSlug
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    slug,
		Path:     "/",
		MaxAge:   int(s.maxAge.Seconds()),
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the carrier cookie on the outgoing response.
func (s *SlugStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
