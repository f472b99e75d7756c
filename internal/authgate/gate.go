// Package authgate guards protected view rendering until the requester's
// identity is confirmed by the current-user lookup.
package authgate

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/crewhq/gateway/internal/client"
)

// State is the gate's view of the requester.
type State int

const (
	// StateLoading is the initial state while the lookup is in flight.
	StateLoading State = iota
	// StateAuthenticated is terminal for the lifetime of the gate instance.
	StateAuthenticated
	// StateUnauthenticated triggers the redirect callback with the
	// preserved return path; protected content is never produced in this
	// state.
	StateUnauthenticated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// User is the confirmed identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// LookupFunc resolves the current user. A nil user with nil error means
// definitively unauthenticated; any error is treated the same way
// (conservative default, never surfaced as a distinct failure).
type LookupFunc func(ctx context.Context) (*User, error)

// ErrAlreadyStarted is returned by Start when a lookup was already begun;
// only one lookup may be in flight per gate instance.
var ErrAlreadyStarted = errors.New("auth gate already started")

// Gate is a per-view authentication gate. It is constructed fresh for every
// mounted protected view; a tenant switch or sign-out discards the gate and
// constructs a new one rather than mutating this one in place.
type Gate struct {
	lookup     LookupFunc
	returnPath string
	onRedirect func(returnPath string)

	mu      sync.Mutex
	state   State
	user    *User
	started bool
	closed  bool
	cancel  context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a gate in StateLoading. onRedirect fires (outside the lock)
// when the gate enters StateUnauthenticated, carrying returnPath so the auth
// flow can resume at the originally requested location.
func New(lookup LookupFunc, returnPath string, onRedirect func(returnPath string)) *Gate {
	return &Gate{
		lookup:     lookup,
		returnPath: returnPath,
		onRedirect: onRedirect,
		state:      StateLoading,
		done:       make(chan struct{}),
	}
}

// Start begins the single permitted lookup. The result is applied unless the
// gate was closed first, in which case it is discarded: no state transition
// ever happens after Close.
func (g *Gate) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return ErrAlreadyStarted
	}
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.started = true
	ctx, g.cancel = context.WithCancel(ctx)
	g.mu.Unlock()

	go g.run(ctx)
	return nil
}

func (g *Gate) run(ctx context.Context) {
	user, err := g.lookup(ctx)

	g.mu.Lock()
	if g.closed {
		// Torn down before resolution: discard the result.
		g.mu.Unlock()
		return
	}
	var redirect func(string)
	if err == nil && user != nil {
		g.state = StateAuthenticated
		g.user = user
	} else {
		g.state = StateUnauthenticated
		redirect = g.onRedirect
	}
	returnPath := g.returnPath
	g.mu.Unlock()

	g.doneOnce.Do(func() { close(g.done) })

	if redirect != nil {
		redirect(returnPath)
	}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// User returns the confirmed identity, or nil unless StateAuthenticated.
func (g *Gate) User() *User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.user
}

// Done is closed when the lookup settles or the gate is closed.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// Close tears the gate down, cancelling any in-flight lookup. A lookup that
// resolves afterward is ignored.
func (g *Gate) Close() {
	g.mu.Lock()
	g.closed = true
	cancel := g.cancel
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	g.doneOnce.Do(func() { close(g.done) })
}

// BackendLookup builds a LookupFunc over the backend's current-user
// endpoint. A 401 or 403 maps to the definitive nil-user answer; other
// failures return their error (which the gate treats as unauthenticated).
func BackendLookup(c *client.Client) LookupFunc {
	return func(ctx context.Context) (*User, error) {
		var u User
		if err := c.GetJSON(ctx, "/auth/me", nil, &u); err != nil {
			var se *client.StatusError
			if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
				return nil, nil
			}
			return nil, err
		}
		if u.ID == "" {
			return nil, nil
		}
		return &u, nil
	}
}
