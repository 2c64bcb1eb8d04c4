package service

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/target/idflow/internal/clock"
	domainauth "github.com/target/idflow/internal/domain/auth"
)

// PrincipalRegistry is the in-memory user pool. It owns every Principal; the
// session only refers to principals by ID.
type PrincipalRegistry struct {
	clock clock.Clock

	mu         sync.RWMutex
	principals []domainauth.Principal // insertion order
}

// NewPrincipalRegistry constructs an empty registry.
func NewPrincipalRegistry(c clock.Clock) *PrincipalRegistry {
	if c == nil {
		c = clock.Real{}
	}
	return &PrincipalRegistry{clock: c}
}

// Register creates a CONFIRMED principal. Emails are matched exactly.
func (r *PrincipalRegistry) Register(email string) (domainauth.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.findLocked(email); ok {
		return domainauth.Principal{}, fmt.Errorf("register %s: %w", email, domainauth.ErrDuplicateEmail)
	}

	p := domainauth.Principal{
		ID:        newPrincipalID(),
		Email:     email,
		Status:    domainauth.StatusConfirmed,
		CreatedAt: r.clock.Now(),
	}
	r.principals = append(r.principals, p)
	return p, nil
}

// RegisterFederated always creates a new EXTERNAL_PROVIDER principal, even
// when the email repeats. Federated callbacks are treated as fresh identities.
func (r *PrincipalRegistry) RegisterFederated(email, provider string) domainauth.Principal {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	p := domainauth.Principal{
		ID:         newPrincipalID(),
		Email:      email,
		Status:     domainauth.StatusExternalProvider,
		Provider:   provider,
		CreatedAt:  now,
		LastSignIn: &now,
	}
	r.principals = append(r.principals, p)
	return p
}

// Find returns the first principal registered under email.
func (r *PrincipalRegistry) Find(email string) (domainauth.Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(email)
}

// Get returns the principal with the given ID.
func (r *PrincipalRegistry) Get(id string) (domainauth.Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.principals[i], true
	}
	return domainauth.Principal{}, false
}

// TouchSignIn sets LastSignIn to now and returns the updated principal.
func (r *PrincipalRegistry) TouchSignIn(id string) (domainauth.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return domainauth.Principal{}, fmt.Errorf("touch sign-in %s: %w", id, domainauth.ErrPrincipalNotFound)
	}
	now := r.clock.Now()
	r.principals[i].LastSignIn = &now
	return r.principals[i], nil
}

// List returns a copy of all principals in registration order.
func (r *PrincipalRegistry) List() []domainauth.Principal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domainauth.Principal(nil), r.principals...)
}

// Summaries returns the user-list projection in registration order.
func (r *PrincipalRegistry) Summaries() []domainauth.UserSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainauth.UserSummary, 0, len(r.principals))
	for _, p := range r.principals {
		out = append(out, p.Summary())
	}
	return out
}

// Len returns the number of registered principals.
func (r *PrincipalRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.principals)
}

// Clear empties the registry.
func (r *PrincipalRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.principals = nil
}

func (r *PrincipalRegistry) findLocked(email string) (domainauth.Principal, bool) {
	for _, p := range r.principals {
		if p.Email == email {
			return p, true
		}
	}
	return domainauth.Principal{}, false
}

func (r *PrincipalRegistry) indexOf(id string) int {
	for i := range r.principals {
		if r.principals[i].ID == id {
			return i
		}
	}
	return -1
}

func newPrincipalID() string {
	return "user-" + uuid.NewString()
}
