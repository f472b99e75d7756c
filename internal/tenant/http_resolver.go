package tenant

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/crewhq/gateway/internal/client"
	"github.com/crewhq/gateway/internal/domain"
	"github.com/crewhq/gateway/pkg/logger"
)

// lookupPath is the backend's tenant-lookup capability, keyed by slug.
const lookupPath = "/org/lookup"

// HTTPResolver resolves slugs against the backend tenant directory.
type HTTPResolver struct {
	client *client.Client
}

// NewHTTPResolver creates a resolver backed by the given API client.
func NewHTTPResolver(c *client.Client) *HTTPResolver {
	return &HTTPResolver{client: c}
}

// Resolve looks the slug up via GET /org/lookup?slug=<slug>. A 404 from the
// backend is the definitive not-found answer; everything else that goes
// wrong (timeouts, refused connections, 5xx) is ErrUnavailable because the
// tenant's existence is unknown.
func (r *HTTPResolver) Resolve(ctx context.Context, slug string) (*domain.Tenant, error) {
	if slug == "" {
		return nil, ErrNotFound
	}

	var rec domain.Tenant
	q := url.Values{"slug": {slug}}
	if err := r.client.GetJSON(ctx, lookupPath, q, &rec); err != nil {
		var se *client.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		logger.WarnCtx(ctx, "tenant lookup failed",
			zap.String("slug", slug),
			zap.Error(err),
		)
		return nil, ErrUnavailable
	}

	if rec.ID == "" {
		return nil, ErrUnavailable
	}
	return &rec, nil
}
