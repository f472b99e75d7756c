package domain

import (
	"time"
)

// Tenant is the canonical organization record returned by the directory
// backend. ID is stable and never derived from client-supplied data; Slug is
// the backend's current slug and may differ from the slug a request carried
// if the organization was renamed. Callers building links must use this Slug.
type Tenant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Slug      string     `json:"slug"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// ActivationStep is one onboarding step projected for a tenant. Completed is
// authoritative from the backend; this layer only reads it.
type ActivationStep struct {
	Key        string `json:"key"`
	Title      string `json:"title"`
	Completed  bool   `json:"completed"`
	ActionPath string `json:"action_path"`
}
