package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crewhq/gateway/internal/routing"
	"github.com/crewhq/gateway/internal/session"
	"github.com/crewhq/gateway/pkg/logger"
)

// Context keys describing the routing decision, consumed by the decision
// audit middleware and available to downstream handlers.
const (
	ContextKeyRouteCategory = "route_category"
	ContextKeyRouteDecision = "route_decision"
	ContextKeyRouteTarget   = "route_target"
	ContextKeyOrgSlug       = "org_slug"
	ContextKeyOriginalPath  = "original_path"
)

// RewriteConfig holds configuration for the tenant rewrite middleware
type RewriteConfig struct {
	// Slugs reads the persisted org-slug carrier. The middleware never
	// writes it.
	Slugs *session.SlugStore
	// LoginPath is the auth redirect destination (default /login)
	LoginPath string
	// NoTenantPath is the no-org redirect destination (default /no-org)
	NoTenantPath string
	// ReturnParam is the query parameter carrying the return path
	// (default next)
	ReturnParam string
}

// TenantRewrite classifies the request path, reads the slug carrier, and
// applies the redirect policy: legacy paths are rewritten in place under the
// tenant scope, unauthenticated protected requests are redirected to the
// auth page with the original path preserved, and slugless protected
// requests go to the no-org page. Classification always precedes the
// decision, and the decision never performs a network call: slug validity is
// re-checked downstream by whichever handler consumes the rewritten path.
func TenantRewrite(config *RewriteConfig) gin.HandlerFunc {
	loginPath := config.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	noTenantPath := config.NoTenantPath
	if noTenantPath == "" {
		noTenantPath = "/no-org"
	}
	returnParam := config.ReturnParam
	if returnParam == "" {
		returnParam = "next"
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		category := routing.Classify(path)
		slug := config.Slugs.Read(c.Request)
		auth := GetAuthState(c)

		pathWithQuery := path
		if rq := c.Request.URL.RawQuery; rq != "" {
			pathWithQuery += "?" + rq
		}

		decision := routing.Decide(category, slug, auth, pathWithQuery)

		c.Set(ContextKeyRouteCategory, category)
		c.Set(ContextKeyRouteDecision, decision.Kind)
		c.Set(ContextKeyRouteTarget, decision.Target)
		if slug != "" {
			c.Set(ContextKeyOrgSlug, slug)
		}

		switch decision.Kind {
		case routing.DecisionRewrite:
			// Server-directed change of the effective path; the client
			// never sees it. Query parameters ride along untouched on
			// the request URL.
			c.Set(ContextKeyOriginalPath, path)
			c.Request.URL.Path = routing.TenantScopePrefix + "/" + slug + path
			logger.DebugCtx(c.Request.Context(), "rewrote legacy path",
				zap.String("from", path),
				zap.String("to", c.Request.URL.Path),
			)
			c.Next()

		case routing.DecisionRedirectToAuth:
			c.Redirect(http.StatusFound, loginPath+"?"+returnParam+"="+url.QueryEscape(decision.Target))
			c.Abort()

		case routing.DecisionRedirectNoTenant:
			c.Redirect(http.StatusFound, noTenantPath)
			c.Abort()

		default:
			c.Next()
		}
	}
}
