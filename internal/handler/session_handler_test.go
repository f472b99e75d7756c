package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crewhq/gateway/internal/domain"
	"github.com/crewhq/gateway/internal/session"
	"github.com/crewhq/gateway/internal/tenant"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubResolver resolves from a fixed map and fails with err when set.
type stubResolver struct {
	records map[string]*domain.Tenant
	err     error
	calls   int
}

func (s *stubResolver) Resolve(ctx context.Context, slug string) (*domain.Tenant, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.records[slug]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	return rec, nil
}

type stubInvalidator struct {
	slugs []string
}

func (s *stubInvalidator) Invalidate(ctx context.Context, slug string) {
	s.slugs = append(s.slugs, slug)
}

func newSessionEngine(resolver tenant.Resolver, cache CacheInvalidator) *gin.Engine {
	h := NewSessionHandler(resolver, session.NewSlugStore("crewhq_org", false, time.Hour), cache)
	engine := gin.New()
	engine.POST("/api/session/org", h.SwitchOrg)
	engine.DELETE("/api/session/org", h.SignOut)
	return engine
}

func orgCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "crewhq_org" {
			return c
		}
	}
	return nil
}

func TestSwitchOrg_SetsCarrierToRecordSlug(t *testing.T) {
	resolver := &stubResolver{records: map[string]*domain.Tenant{
		"acme": {ID: "t-1", Slug: "acme-renamed", Name: "Acme"},
	}}
	engine := newSessionEngine(resolver, nil)

	req := httptest.NewRequest("POST", "/api/session/org", strings.NewReader(`{"slug":"acme"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	c := orgCookie(w)
	if c == nil {
		t.Fatal("carrier cookie not set")
	}
	if c.Value != "acme-renamed" {
		t.Errorf("carrier = %q, want the resolved record's slug %q", c.Value, "acme-renamed")
	}
	if !c.HttpOnly {
		t.Error("carrier cookie should be HttpOnly")
	}
}

func TestSwitchOrg_UnknownSlugLeavesCarrierUntouched(t *testing.T) {
	resolver := &stubResolver{records: map[string]*domain.Tenant{}}
	engine := newSessionEngine(resolver, nil)

	req := httptest.NewRequest("POST", "/api/session/org", strings.NewReader(`{"slug":"ghost"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "crewhq_org", Value: "acme"})
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if orgCookie(w) != nil {
		t.Error("carrier must not be touched on a failed switch")
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Error.Code != "TENANT_NOT_FOUND" {
		t.Errorf("error code = %q, want TENANT_NOT_FOUND", body.Error.Code)
	}
}

func TestSwitchOrg_UnavailableBackendIs503(t *testing.T) {
	resolver := &stubResolver{err: tenant.ErrUnavailable}
	engine := newSessionEngine(resolver, nil)

	req := httptest.NewRequest("POST", "/api/session/org", strings.NewReader(`{"slug":"acme"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if orgCookie(w) != nil {
		t.Error("carrier must not be touched while the directory is unavailable")
	}
}

func TestSwitchOrg_InvalidatesBothSlugs(t *testing.T) {
	resolver := &stubResolver{records: map[string]*domain.Tenant{
		"beta": {ID: "t-2", Slug: "beta", Name: "Beta"},
	}}
	cache := &stubInvalidator{}
	engine := newSessionEngine(resolver, cache)

	req := httptest.NewRequest("POST", "/api/session/org", strings.NewReader(`{"slug":"beta"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "crewhq_org", Value: "acme"})
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	want := []string{"acme", "beta"}
	if len(cache.slugs) != len(want) {
		t.Fatalf("invalidated %v, want %v", cache.slugs, want)
	}
	for i := range want {
		if cache.slugs[i] != want[i] {
			t.Errorf("invalidated %v, want %v", cache.slugs, want)
			break
		}
	}
}

func TestSwitchOrg_MissingSlugIsBadRequest(t *testing.T) {
	engine := newSessionEngine(&stubResolver{}, nil)

	req := httptest.NewRequest("POST", "/api/session/org", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSignOut_ClearsCarrierAndInvalidates(t *testing.T) {
	cache := &stubInvalidator{}
	engine := newSessionEngine(&stubResolver{}, cache)

	req := httptest.NewRequest("DELETE", "/api/session/org", nil)
	req.AddCookie(&http.Cookie{Name: "crewhq_org", Value: "acme"})
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	c := orgCookie(w)
	if c == nil {
		t.Fatal("expected an expiring carrier cookie")
	}
	if c.MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1", c.MaxAge)
	}
	if len(cache.slugs) != 1 || cache.slugs[0] != "acme" {
		t.Errorf("invalidated %v, want [acme]", cache.slugs)
	}
}
