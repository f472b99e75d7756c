// Package tenant holds the single slug→tenant resolution contract shared by
// every data-access call site. All consumers observe the same
// NotFound/Unavailable split; none reimplements the lookup.
package tenant

import (
	"context"
	"errors"

	"github.com/crewhq/gateway/internal/domain"
)

var (
	// ErrNotFound means the slug does not correspond to any tenant. Callers
	// route to the no-tenant experience.
	ErrNotFound = errors.New("tenant not found")
	// ErrUnavailable means the lookup failed in transport or in the backend;
	// the target state is unknown. Callers degrade to a best-effort render
	// and must not write or clear the slug carrier.
	ErrUnavailable = errors.New("tenant directory unavailable")
)

// Resolver resolves a tenant slug to the canonical tenant record. Resolve is
// idempotent and side-effect free: the same slug against unchanged backend
// state yields the same record. Errors are always one of ErrNotFound or
// ErrUnavailable.
type Resolver interface {
	Resolve(ctx context.Context, slug string) (*domain.Tenant, error)
}
