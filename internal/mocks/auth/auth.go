package auth

// Package auth contains simple hand-written test doubles for the flow ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"sync"

	domainauth "github.com/target/idflow/internal/domain/auth"
	"github.com/target/idflow/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.FederationProvider = (*MockFederationProvider)(nil)
	_ ports.TokenInspector     = (*StaticInspector)(nil)
	_ ports.EventSink          = (*RecordingSink)(nil)
)

// MockFederationProvider simulates an external IdP with deterministic state/nonce handling.
type MockFederationProvider struct {
	SupportsFunc func(provider string) bool
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.ExternalIdentity, error)

	// Deterministic values for predictable testing
	AuthURL     string
	StatePrefix string
	NoncePrefix string
	Email       string

	mu        sync.Mutex
	callCount int
}

// NewMockFederationProvider creates a MockFederationProvider with sensible defaults.
func NewMockFederationProvider() *MockFederationProvider {
	return &MockFederationProvider{
		AuthURL:     "https://mock-idp/authorize",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		Email:       "user@gmail.com",
	}
}

func (m *MockFederationProvider) Supports(provider string) bool {
	if m.SupportsFunc != nil {
		return m.SupportsFunc(provider)
	}
	return provider != ""
}

func (m *MockFederationProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/authorize"
	}
	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}

	return authURL, fmt.Sprintf("%s-%d", statePrefix, n), fmt.Sprintf("%s-%d", noncePrefix, n), nil
}

func (m *MockFederationProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.ExternalIdentity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}

	email := m.Email
	if email == "" {
		email = "user@gmail.com"
	}
	return domainauth.ExternalIdentity{
		Subject:  in.Provider + "|" + in.State,
		Email:    email,
		Provider: in.Provider,
	}, nil
}

// Calls returns how many times Begin ran with the default behavior.
func (m *MockFederationProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// StaticInspector returns a fixed result for every token.
type StaticInspector struct {
	Claims domainauth.Claims
	Err    error
	// ErrByUse overrides Err for a single token use.
	ErrByUse map[domainauth.TokenUse]error
}

func (s StaticInspector) Inspect(_ context.Context, _ string, use domainauth.TokenUse) (domainauth.Claims, error) {
	if err, ok := s.ErrByUse[use]; ok {
		return domainauth.Claims{}, err
	}
	if s.Err != nil {
		return domainauth.Claims{}, s.Err
	}
	c := s.Claims
	c.TokenUse = use
	return c, nil
}

// RecordingSink keeps every published event in order.
type RecordingSink struct {
	// Err, when set, is returned from every Publish after recording.
	Err error

	mu     sync.Mutex
	events []domainauth.Event
}

func (r *RecordingSink) Publish(_ context.Context, ev domainauth.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *RecordingSink) Events() []domainauth.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domainauth.Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events in order.
func (r *RecordingSink) Kinds() []domainauth.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domainauth.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

// Steps returns the step carried by each step_changed event, in order.
func (r *RecordingSink) Steps() []domainauth.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domainauth.Step
	for _, ev := range r.events {
		if ev.Kind == domainauth.EventStepChanged {
			out = append(out, ev.Step)
		}
	}
	return out
}

// Logs returns the message of each log_emitted event, in order.
func (r *RecordingSink) Logs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Kind == domainauth.EventLogEmitted && ev.Log != nil {
			out = append(out, ev.Log.Message)
		}
	}
	return out
}

// Reset drops all recorded events.
func (r *RecordingSink) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
