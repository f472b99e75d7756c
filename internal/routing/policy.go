package routing

import (
	"strings"
)

// AuthState is the policy's view of the requester's identity. Unknown means
// no verifier ran; the policy does not gate on Unknown, only on a definite
// Unauthenticated.
type AuthState int

const (
	AuthUnknown AuthState = iota
	AuthAuthenticated
	AuthUnauthenticated
)

// DecisionKind enumerates the possible routing outcomes.
type DecisionKind int

const (
	DecisionAllow DecisionKind = iota
	DecisionRewrite
	DecisionRedirectToAuth
	DecisionRedirectNoTenant
)

// String returns the decision name for logging and audit entries.
func (k DecisionKind) String() string {
	switch k {
	case DecisionRewrite:
		return "rewrite"
	case DecisionRedirectToAuth:
		return "redirect_auth"
	case DecisionRedirectNoTenant:
		return "redirect_no_tenant"
	default:
		return "allow"
	}
}

// Decision is the routing outcome for one request. Target is the rewrite
// destination for DecisionRewrite and the preserved return path for
// DecisionRedirectToAuth; it is empty otherwise. Decisions are produced per
// request and consumed exactly once, never persisted.
type Decision struct {
	Kind   DecisionKind
	Target string
}

// Decide computes the routing decision for a classified request. slug is the
// carrier value ("" when absent); its presence is checked here, its validity
// is the resolver's concern downstream. path must carry the query string so
// rewrites and return paths preserve it verbatim. Decide performs no network
// calls and holds no state.
//
// An unauthenticated request is never rewritten into the tenant scope, even
// when a slug is present: auth resolves first so a tenant-scoped shell is
// never produced for an unverified requester.
func Decide(category Category, slug string, auth AuthState, path string) Decision {
	switch category {
	case CategoryPublicAsset, CategoryAPIEndpoint, CategoryTenantScoped, CategoryAuthPage:
		return Decision{Kind: DecisionAllow}
	}

	// LegacyTenant and Unclassified are protected by default.
	if auth == AuthUnauthenticated {
		return Decision{Kind: DecisionRedirectToAuth, Target: path}
	}
	if slug == "" {
		return Decision{Kind: DecisionRedirectNoTenant}
	}
	return Decision{Kind: DecisionRewrite, Target: TenantScopePrefix + "/" + slug + path}
}

// StripOrgPrefix removes the "/org/<slug>" prefix from a tenant-scoped path,
// returning the original legacy path. It is the inverse of the rewrite
// performed by Decide and returns the input unchanged if the prefix is absent.
func StripOrgPrefix(path string) string {
	rest, ok := strings.CutPrefix(path, TenantScopePrefix+"/")
	if !ok {
		return path
	}
	i := strings.IndexByte(rest, '/')
	if i < 0 {
		return "/"
	}
	return rest[i:]
}
