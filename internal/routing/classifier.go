package routing

import (
	"strings"
)

// Category is the route class computed once per request from the path.
type Category int

const (
	CategoryUnclassified Category = iota
	CategoryPublicAsset
	CategoryAPIEndpoint
	CategoryAuthPage
	CategoryTenantScoped
	CategoryLegacyTenant
)

// String returns the category name for logging and audit entries.
func (c Category) String() string {
	switch c {
	case CategoryPublicAsset:
		return "public_asset"
	case CategoryAPIEndpoint:
		return "api_endpoint"
	case CategoryAuthPage:
		return "auth_page"
	case CategoryTenantScoped:
		return "tenant_scoped"
	case CategoryLegacyTenant:
		return "legacy_tenant"
	default:
		return "unclassified"
	}
}

// TenantScopePrefix is the path prefix under which every tenant-scoped page
// lives: /org/<slug>/...
const TenantScopePrefix = "/org"

// assetPrefixes are served without classification beyond PublicAsset.
var assetPrefixes = []string{
	"/static/",
	"/assets/",
	"/public/",
}

// assetExact are single public files requested by browsers unconditionally.
var assetExact = []string{
	"/favicon.ico",
	"/robots.txt",
}

// authPages must stay reachable while unauthenticated to avoid redirect loops.
var authPages = []string{
	"/login",
	"/sign-in",
	"/sign-up",
	"/forgot-password",
}

// legacyPrefixes is the fixed set of pre-multi-tenancy top-level sections.
// A path under one of these belongs to the current tenant and gets rewritten
// under TenantScopePrefix.
var legacyPrefixes = []string{
	"people",
	"performance",
	"documents",
	"time-off",
	"hiring",
	"jobs",
	"candidates",
	"teams",
	"analytics",
	"settings",
	"billing",
	"employee-documents",
}

// Classify maps a normalized, decoded request path (leading slash, no
// trailing slash except root) to exactly one Category. It is a total
// function: malformed input is classified, never rejected. Precedence is
// fixed and first match wins.
func Classify(path string) Category {
	if path == "" || path[0] != '/' {
		return CategoryUnclassified
	}

	for _, p := range assetPrefixes {
		if strings.HasPrefix(path, p) {
			return CategoryPublicAsset
		}
	}
	for _, p := range assetExact {
		if path == p {
			return CategoryPublicAsset
		}
	}

	if path == "/api" || strings.HasPrefix(path, "/api/") {
		return CategoryAPIEndpoint
	}

	for _, p := range authPages {
		if path == p {
			return CategoryAuthPage
		}
	}

	if path == TenantScopePrefix || strings.HasPrefix(path, TenantScopePrefix+"/") {
		return CategoryTenantScoped
	}

	if head := firstSegment(path); head != "" {
		for _, p := range legacyPrefixes {
			if head == p {
				return CategoryLegacyTenant
			}
		}
	}

	return CategoryUnclassified
}

// firstSegment returns the first path segment without slashes, or "" for root.
func firstSegment(path string) string {
	s := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}
