package activation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crewhq/gateway/internal/client"
	"github.com/crewhq/gateway/internal/domain"
)

func newStatusServer(t *testing.T, completedKeys []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/orgs/") || !strings.HasSuffix(r.URL.Path, "/activation-status") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string][]string{"completedKeys": completedKeys})
	}))
}

func TestTracker_Status(t *testing.T) {
	srv := newStatusServer(t, []string{"invite-team", "create-job"})
	defer srv.Close()

	tr := NewTracker(client.New(srv.URL, 5*time.Second))
	tenant := &domain.Tenant{ID: "t-001", Slug: "acme"}

	status := tr.Status(context.Background(), tenant)

	if status.Hidden {
		t.Error("status should not be hidden while steps remain")
	}
	if len(status.Steps) != len(stepDefs) {
		t.Fatalf("got %d steps, want %d", len(status.Steps), len(stepDefs))
	}

	byKey := make(map[string]domain.ActivationStep)
	for _, s := range status.Steps {
		byKey[s.Key] = s
	}

	if !byKey["invite-team"].Completed {
		t.Error("invite-team should be completed")
	}
	if !byKey["create-job"].Completed {
		t.Error("create-job should be completed")
	}
	if byKey["import-employees"].Completed {
		t.Error("import-employees should not be completed")
	}
}

func TestTracker_ActionPathsUseRecordSlug(t *testing.T) {
	srv := newStatusServer(t, nil)
	defer srv.Close()

	tr := NewTracker(client.New(srv.URL, 5*time.Second))

	// The record's slug (post-rename) drives the links, whatever the
	// request carried.
	tenant := &domain.Tenant{ID: "t-001", Slug: "acme-renamed"}
	status := tr.Status(context.Background(), tenant)

	for _, s := range status.Steps {
		if !strings.HasPrefix(s.ActionPath, "/org/acme-renamed/") {
			t.Errorf("step %s action path = %q, want /org/acme-renamed/ prefix", s.Key, s.ActionPath)
		}
	}
}

func TestTracker_HiddenWhenAllComplete(t *testing.T) {
	all := make([]string, 0, len(stepDefs))
	for _, def := range stepDefs {
		all = append(all, def.key)
	}
	srv := newStatusServer(t, all)
	defer srv.Close()

	tr := NewTracker(client.New(srv.URL, 5*time.Second))
	status := tr.Status(context.Background(), &domain.Tenant{ID: "t-001", Slug: "acme"})

	if !status.Hidden {
		t.Error("status should be hidden once every step is complete")
	}
}

func TestTracker_FetchFailureDegradesSilently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewTracker(client.New(srv.URL, 5*time.Second))
	status := tr.Status(context.Background(), &domain.Tenant{ID: "t-001", Slug: "acme"})

	if !status.Hidden {
		t.Error("fetch failure should degrade to a hidden status")
	}
	if len(status.Steps) != 0 {
		t.Errorf("got %d steps, want none on failure", len(status.Steps))
	}
}
