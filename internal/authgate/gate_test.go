package authgate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crewhq/gateway/internal/client"
)

func waitDone(t *testing.T, g *Gate) {
	t.Helper()
	select {
	case <-g.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("gate did not settle in time")
	}
}

func TestGate_InitialStateLoading(t *testing.T) {
	g := New(func(ctx context.Context) (*User, error) { return nil, nil }, "/people", nil)

	if g.State() != StateLoading {
		t.Errorf("State() = %v, want loading", g.State())
	}
}

func TestGate_Authenticated(t *testing.T) {
	g := New(func(ctx context.Context) (*User, error) {
		return &User{ID: "u-1", Email: "pat@acme.test"}, nil
	}, "/people", nil)

	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitDone(t, g)

	if g.State() != StateAuthenticated {
		t.Errorf("State() = %v, want authenticated", g.State())
	}
	if g.User() == nil || g.User().ID != "u-1" {
		t.Errorf("User() = %+v, want id u-1", g.User())
	}
}

func TestGate_NilUserIsUnauthenticated(t *testing.T) {
	var gotReturnPath atomic.Value
	g := New(func(ctx context.Context) (*User, error) { return nil, nil },
		"/candidates",
		func(returnPath string) { gotReturnPath.Store(returnPath) },
	)

	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitDone(t, g)

	if g.State() != StateUnauthenticated {
		t.Errorf("State() = %v, want unauthenticated", g.State())
	}

	// Redirect fires after done; give the callback a moment.
	deadline := time.Now().Add(time.Second)
	for gotReturnPath.Load() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := gotReturnPath.Load(); got != "/candidates" {
		t.Errorf("redirect return path = %v, want /candidates", got)
	}
}

func TestGate_LookupErrorIsUnauthenticated(t *testing.T) {
	g := New(func(ctx context.Context) (*User, error) {
		return nil, errors.New("backend down")
	}, "/people", nil)

	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitDone(t, g)

	if g.State() != StateUnauthenticated {
		t.Errorf("State() = %v, want unauthenticated (errors are conservative)", g.State())
	}
}

func TestGate_CloseBeforeResolveDiscardsResult(t *testing.T) {
	release := make(chan struct{})
	var transitions atomic.Int32

	g := New(func(ctx context.Context) (*User, error) {
		<-release
		return &User{ID: "u-1"}, nil
	}, "/people", func(string) { transitions.Add(1) })

	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	// Tear down before the lookup resolves.
	g.Close()
	close(release)

	// Let the goroutine finish, then verify no state update happened.
	time.Sleep(50 * time.Millisecond)

	if g.State() != StateLoading {
		t.Errorf("State() = %v, want loading (result discarded after close)", g.State())
	}
	if g.User() != nil {
		t.Error("User() should stay nil after close")
	}
	if transitions.Load() != 0 {
		t.Error("redirect callback fired after close")
	}
}

func TestGate_CloseCancelsInFlightLookup(t *testing.T) {
	cancelled := make(chan struct{})
	g := New(func(ctx context.Context) (*User, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	}, "/people", nil)

	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	g.Close()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not cancel the in-flight lookup")
	}
}

func TestGate_SingleLookupPerInstance(t *testing.T) {
	g := New(func(ctx context.Context) (*User, error) { return &User{ID: "u-1"}, nil }, "/", nil)

	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("first Start() failed: %v", err)
	}
	if err := g.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}
}

func TestBackendLookup_CurrentUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/me" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(User{ID: "u-1", Email: "pat@acme.test"})
	}))
	defer srv.Close()

	lookup := BackendLookup(client.New(srv.URL, 5*time.Second))

	user, err := lookup(context.Background())
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if user == nil || user.ID != "u-1" {
		t.Errorf("user = %+v, want id u-1", user)
	}
}

func TestBackendLookup_UnauthenticatedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	lookup := BackendLookup(client.New(srv.URL, 5*time.Second))

	// Unauthenticated status is a definitive nil user, not an error.
	user, err := lookup(context.Background())
	if err != nil {
		t.Fatalf("lookup returned error for 401: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil for 401", user)
	}
}
