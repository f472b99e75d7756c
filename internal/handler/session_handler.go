package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crewhq/gateway/internal/session"
	"github.com/crewhq/gateway/internal/tenant"
	"github.com/crewhq/gateway/pkg/logger"
	"github.com/crewhq/gateway/pkg/response"
)

// CacheInvalidator drops a cached tenant record so the next resolution is
// fresh. Satisfied by tenant.CachedResolver; a nil invalidator is a no-op.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, slug string)
}

// SwitchOrgRequest is the org-switch payload.
type SwitchOrgRequest struct {
	Slug string `json:"slug" binding:"required"`
}

// SessionHandler handles org-switch and sign-out for the slug carrier
type SessionHandler struct {
	resolver tenant.Resolver
	slugs    *session.SlugStore
	cache    CacheInvalidator
}

// NewSessionHandler creates a new SessionHandler. cache may be nil when no
// resolver cache is configured.
func NewSessionHandler(resolver tenant.Resolver, slugs *session.SlugStore, cache CacheInvalidator) *SessionHandler {
	return &SessionHandler{resolver: resolver, slugs: slugs, cache: cache}
}

// SwitchOrg sets the current org for the session. The slug must resolve
// before the carrier is touched: an unknown or unavailable org leaves the
// previous carrier value in place.
// POST /api/session/org
func (h *SessionHandler) SwitchOrg(c *gin.Context) {
	var req SwitchOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	rec, err := h.resolver.Resolve(c.Request.Context(), req.Slug)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			c.JSON(http.StatusNotFound, response.Error(response.ErrCodeTenantNotFound, "No organization with this slug"))
			return
		}
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Organization lookup is temporarily unavailable"))
		return
	}

	// Invalidate both sides of the switch so stale records cannot outlive it.
	if h.cache != nil {
		if prev := h.slugs.Read(c.Request); prev != "" && prev != rec.Slug {
			h.cache.Invalidate(c.Request.Context(), prev)
		}
		h.cache.Invalidate(c.Request.Context(), req.Slug)
	}

	// Persist the resolved record's slug, not the requested one, so a rename
	// observed during resolution wins.
	if err := h.slugs.Write(c.Writer, rec.Slug); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeInvalidSlug, err.Error()))
		return
	}

	logger.InfoCtx(c.Request.Context(), "switched org",
		zap.String("slug", rec.Slug),
		zap.String("tenant_id", rec.ID),
	)

	c.JSON(http.StatusOK, response.Success(rec))
}

// SignOut clears the slug carrier and drops the cached record for the org
// the session was on.
// DELETE /api/session/org
func (h *SessionHandler) SignOut(c *gin.Context) {
	slug := h.slugs.Read(c.Request)
	if h.cache != nil && slug != "" {
		h.cache.Invalidate(c.Request.Context(), slug)
	}
	h.slugs.Clear(c.Writer)

	c.JSON(http.StatusOK, response.Success(gin.H{"message": "Signed out"}))
}
