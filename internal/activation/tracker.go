// Package activation projects per-tenant onboarding progress. Completion
// state is authoritative from the backend; this layer only fetches and maps
// it to display metadata.
package activation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crewhq/gateway/internal/client"
	"github.com/crewhq/gateway/internal/domain"
	"github.com/crewhq/gateway/pkg/logger"
)

// stepDef ties a fixed step key to its display title and destination path
// template. The path is templated with the resolved record's slug, not the
// slug the request carried.
type stepDef struct {
	key       string
	title     string
	pathTempl string // %s is the tenant slug
}

// stepDefs is the fixed, ordered enumeration of onboarding steps.
var stepDefs = []stepDef{
	{"invite-team", "Invite your team", "/org/%s/teams/invite"},
	{"import-employees", "Import employees", "/org/%s/people/import"},
	{"create-job", "Post your first job", "/org/%s/jobs/new"},
	{"set-up-time-off", "Set up time-off policies", "/org/%s/time-off/policies"},
	{"connect-billing", "Add billing details", "/org/%s/settings/billing"},
}

// Status is the tracker's read-only projection for one tenant. Hidden is
// true when there is nothing to render: every step complete, or the status
// fetch failed (non-fatal, silent degrade).
type Status struct {
	Steps  []domain.ActivationStep `json:"steps"`
	Hidden bool                    `json:"hidden"`
}

// statusResponse is the backend's activation-status payload.
type statusResponse struct {
	CompletedKeys []string `json:"completedKeys"`
}

// Tracker fetches activation status for resolved tenants.
type Tracker struct {
	client *client.Client
}

// NewTracker creates a Tracker backed by the given API client.
func NewTracker(c *client.Client) *Tracker {
	return &Tracker{client: c}
}

// Status fetches completion state for the tenant and maps the fixed step
// enumeration to display steps. It never mutates completion state and never
// fails: any fetch error degrades to a hidden, empty status.
func (t *Tracker) Status(ctx context.Context, tenant *domain.Tenant) Status {
	var resp statusResponse
	path := fmt.Sprintf("/orgs/%s/activation-status", tenant.ID)
	if err := t.client.GetJSON(ctx, path, nil, &resp); err != nil {
		logger.DebugCtx(ctx, "activation status unavailable",
			zap.String("tenant_id", tenant.ID),
			zap.Error(err),
		)
		return Status{Hidden: true}
	}

	completed := make(map[string]bool, len(resp.CompletedKeys))
	for _, k := range resp.CompletedKeys {
		completed[k] = true
	}

	steps := make([]domain.ActivationStep, 0, len(stepDefs))
	allDone := true
	for _, def := range stepDefs {
		done := completed[def.key]
		if !done {
			allDone = false
		}
		steps = append(steps, domain.ActivationStep{
			Key:        def.key,
			Title:      def.title,
			Completed:  done,
			ActionPath: fmt.Sprintf(def.pathTempl, tenant.Slug),
		})
	}

	return Status{Steps: steps, Hidden: allDone}
}
