package federation

// Package federation provides a simulated external identity provider.
// It builds real OAuth2 authorization URLs for well-known social providers
// but never contacts them: the callback is answered locally with a
// placeholder identity.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/target/idflow/internal/clock"
	domainauth "github.com/target/idflow/internal/domain/auth"
	apperrors "github.com/target/idflow/internal/errors"
	"github.com/target/idflow/internal/ports"
	"golang.org/x/oauth2"
)

const defaultStateTTL = 10 * time.Minute

// endpoints lists the providers the simulator knows how to redirect to.
var endpoints = map[string]struct {
	endpoint oauth2.Endpoint
	scopes   []string
}{
	"Google": {
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		scopes: []string{"openid", "email", "profile"},
	},
	"Facebook": {
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.facebook.com/v18.0/dialog/oauth",
			TokenURL: "https://graph.facebook.com/v18.0/oauth/access_token",
		},
		scopes: []string{"public_profile", "email"},
	},
	"LoginWithAmazon": {
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.amazon.com/ap/oa",
			TokenURL: "https://api.amazon.com/auth/o2/token",
		},
		scopes: []string{"profile"},
	},
	"SignInWithApple": {
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://appleid.apple.com/auth/authorize",
			TokenURL: "https://appleid.apple.com/auth/token",
		},
		scopes: []string{"name", "email"},
	},
}

// KnownProviders returns the names of every provider the simulator supports, sorted.
func KnownProviders() []string {
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config controls the simulated provider.
type Config struct {
	ClientID         string
	RedirectURL      string
	PlaceholderEmail string
	// Providers restricts the enabled providers; empty enables all known ones.
	Providers []string
	// StateTTL bounds how long a Begin is valid for; default 10m when zero.
	StateTTL time.Duration
	Clock    clock.Clock
}

type pendingAuth struct {
	provider  string
	nonce     string
	expiresAt time.Time
}

// Provider implements ports.FederationProvider without any network traffic.
// Begin records the state and nonce it hands out; Exchange only accepts a
// state it issued and returns a placeholder identity.
type Provider struct {
	configs map[string]*oauth2.Config
	email   string
	ttl     time.Duration
	clock   clock.Clock

	mu      sync.Mutex
	pending map[string]pendingAuth
}

var _ ports.FederationProvider = (*Provider)(nil)

// NewProvider constructs a simulated provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("federation: client ID is required")
	}
	if cfg.PlaceholderEmail == "" {
		return nil, errors.New("federation: placeholder email is required")
	}

	names := cfg.Providers
	if len(names) == 0 {
		names = KnownProviders()
	}
	configs := make(map[string]*oauth2.Config, len(names))
	for _, name := range names {
		ep, ok := endpoints[name]
		if !ok {
			return nil, fmt.Errorf("federation: unknown provider %q", name)
		}
		configs[name] = &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Scopes:      ep.scopes,
			Endpoint:    ep.endpoint,
		}
	}

	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	c := cfg.Clock
	if c == nil {
		c = clock.Real{}
	}
	return &Provider{
		configs: configs,
		email:   cfg.PlaceholderEmail,
		ttl:     ttl,
		clock:   c,
		pending: make(map[string]pendingAuth),
	}, nil
}

// Supports reports whether provider is enabled.
func (p *Provider) Supports(provider string) bool {
	_, ok := p.configs[provider]
	return ok
}

// Begin builds the provider authorization URL with a fresh state and nonce.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	oc, ok := p.configs[in.Provider]
	if !ok {
		return "", "", "", fmt.Errorf("begin %q: %w", in.Provider, domainauth.ErrUnsupportedProvider)
	}

	state, err := randomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	if in.RedirectURL != "" && in.RedirectURL != oc.RedirectURL {
		cp := *oc
		cp.RedirectURL = in.RedirectURL
		oc = &cp
	}
	authURL := oc.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
	)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()
	p.pending[state] = pendingAuth{
		provider:  in.Provider,
		nonce:     nonce,
		expiresAt: p.clock.Now().Add(p.ttl),
	}
	return authURL, state, nonce, nil
}

// Exchange consumes a state issued by Begin and returns the placeholder identity.
func (p *Provider) Exchange(_ context.Context, in ports.ExchangeInput) (domainauth.ExternalIdentity, error) {
	if in.Code == "" {
		return domainauth.ExternalIdentity{}, apperrors.ValidationField("code", "authorization code is required")
	}
	if in.State == "" {
		return domainauth.ExternalIdentity{}, apperrors.ValidationField("state", "state is required")
	}

	p.mu.Lock()
	pa, ok := p.pending[in.State]
	delete(p.pending, in.State)
	p.mu.Unlock()

	switch {
	case !ok:
		return domainauth.ExternalIdentity{}, apperrors.ValidationField("state", "unknown or already used state")
	case pa.provider != in.Provider:
		return domainauth.ExternalIdentity{}, apperrors.ValidationField("provider", "state was issued for a different provider")
	case in.Nonce != "" && in.Nonce != pa.nonce:
		return domainauth.ExternalIdentity{}, apperrors.ValidationField("nonce", "invalid nonce")
	case !p.clock.Now().Before(pa.expiresAt):
		return domainauth.ExternalIdentity{}, apperrors.ValidationField("state", "state expired")
	}

	return domainauth.ExternalIdentity{
		Subject:  strings.ToLower(in.Provider) + "_" + in.State[:16],
		Email:    p.email,
		Provider: in.Provider,
	}, nil
}

// Pending returns the number of outstanding Begin calls.
func (p *Provider) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Provider) pruneLocked() {
	now := p.clock.Now()
	for state, pa := range p.pending {
		if !now.Before(pa.expiresAt) {
			delete(p.pending, state)
		}
	}
}

// randomString returns a URL-safe random string of exactly n characters.
func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	return s[:n], nil
}
