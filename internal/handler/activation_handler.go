package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crewhq/gateway/internal/activation"
	"github.com/crewhq/gateway/internal/tenant"
	"github.com/crewhq/gateway/pkg/response"
)

// ActivationHandler serves the onboarding checklist projection
type ActivationHandler struct {
	resolver tenant.Resolver
	tracker  *activation.Tracker
}

// NewActivationHandler creates a new ActivationHandler
func NewActivationHandler(resolver tenant.Resolver, tracker *activation.Tracker) *ActivationHandler {
	return &ActivationHandler{resolver: resolver, tracker: tracker}
}

// Status returns onboarding progress for the org. The slug is resolved first
// so the checklist paths use the record's current slug.
// GET /api/orgs/:slug/activation
func (h *ActivationHandler) Status(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		c.JSON(http.StatusBadRequest, response.BadRequest("Slug is required"))
		return
	}

	rec, err := h.resolver.Resolve(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			c.JSON(http.StatusNotFound, response.Error(response.ErrCodeTenantNotFound, "No organization with this slug"))
			return
		}
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable("Organization lookup is temporarily unavailable"))
		return
	}

	status := h.tracker.Status(c.Request.Context(), rec)
	c.JSON(http.StatusOK, response.Success(status))
}
