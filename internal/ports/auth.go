package ports

// Package ports defines interfaces (hexagonal ports) at the edges of the flow engine.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/target/idflow/internal/domain/auth"
)

// BeginInput carries inputs for initiating a federated sign-in.
type BeginInput struct {
	Provider    string
	RedirectURL string
}

// ExchangeInput groups parameters for the simulated callback exchange.
type ExchangeInput struct {
	Provider string
	Code     string
	State    string
	Nonce    string
}

// FederationProvider initiates and completes a sign-in against an external IdP.
type FederationProvider interface {
	// Supports reports whether the named provider can be used.
	Supports(provider string) bool

	// Begin starts the redirect and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the callback, checking state, and returns the external identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.ExternalIdentity, error)
}

// TokenInspector decodes a raw token and checks its claims for the expected use.
// It never verifies signatures.
type TokenInspector interface {
	Inspect(ctx context.Context, raw string, use domainauth.TokenUse) (domainauth.Claims, error)
}

// EventSink receives state-change events from the session state machine.
// Publish is called synchronously and in order; implementations must not call
// back into the session service.
type EventSink interface {
	Publish(ctx context.Context, ev domainauth.Event) error
}
