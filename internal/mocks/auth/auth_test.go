package auth

import (
	"context"
	"errors"
	"testing"

	domainauth "github.com/target/idflow/internal/domain/auth"
	"github.com/target/idflow/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockFederationProvider_Begin_Defaults(t *testing.T) {
	provider := NewMockFederationProvider()
	ctx := context.Background()

	input := ports.BeginInput{Provider: "Google", RedirectURL: "http://localhost/callback"}
	authURL, state, nonce, err := provider.Begin(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/authorize", authURL)
	assert.Equal(t, "state-1", state)
	assert.Equal(t, "nonce-1", nonce)

	// Second call should increment counters
	_, state2, nonce2, err2 := provider.Begin(ctx, input)
	require.NoError(t, err2)
	assert.Equal(t, "state-2", state2)
	assert.Equal(t, "nonce-2", nonce2)
	assert.Equal(t, 2, provider.Calls())
}

func TestMockFederationProvider_Exchange_Defaults(t *testing.T) {
	provider := NewMockFederationProvider()

	ident, err := provider.Exchange(context.Background(), ports.ExchangeInput{Provider: "Google", State: "state-1"})

	require.NoError(t, err)
	assert.Equal(t, "user@gmail.com", ident.Email)
	assert.Equal(t, "Google", ident.Provider)
	assert.Equal(t, "Google|state-1", ident.Subject)
}

func TestMockFederationProvider_CustomFuncs(t *testing.T) {
	boom := errors.New("boom")
	provider := &MockFederationProvider{
		SupportsFunc: func(p string) bool { return p == "Apple" },
		ExchangeFunc: func(context.Context, ports.ExchangeInput) (domainauth.ExternalIdentity, error) {
			return domainauth.ExternalIdentity{}, boom
		},
	}

	assert.True(t, provider.Supports("Apple"))
	assert.False(t, provider.Supports("Google"))
	_, err := provider.Exchange(context.Background(), ports.ExchangeInput{})
	require.ErrorIs(t, err, boom)
}

func TestStaticInspector(t *testing.T) {
	insp := StaticInspector{
		Claims:   domainauth.Claims{Subject: "user-1"},
		ErrByUse: map[domainauth.TokenUse]error{domainauth.TokenUseRefresh: domainauth.ErrTokenExpired},
	}

	c, err := insp.Inspect(context.Background(), "raw", domainauth.TokenUseAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.Subject)
	assert.Equal(t, domainauth.TokenUseAccess, c.TokenUse)

	_, err = insp.Inspect(context.Background(), "raw", domainauth.TokenUseRefresh)
	require.ErrorIs(t, err, domainauth.ErrTokenExpired)
}

func TestRecordingSink(t *testing.T) {
	sink := &RecordingSink{}
	ctx := context.Background()

	require.NoError(t, sink.Publish(ctx, domainauth.Event{Kind: domainauth.EventStepChanged, Step: domainauth.StepValidating}))
	require.NoError(t, sink.Publish(ctx, domainauth.Event{
		Kind: domainauth.EventLogEmitted,
		Log:  &domainauth.LogEntry{Kind: domainauth.LogInfo, Message: "hello"},
	}))

	assert.Equal(t, []domainauth.EventKind{domainauth.EventStepChanged, domainauth.EventLogEmitted}, sink.Kinds())
	assert.Equal(t, []domainauth.Step{domainauth.StepValidating}, sink.Steps())
	assert.Equal(t, []string{"hello"}, sink.Logs())

	sink.Reset()
	assert.Empty(t, sink.Events())
}
