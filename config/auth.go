package config

import (
	"strings"
	"time"
)

const (
	defaultIssuer   = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_example"
	defaultClientID = "example-client-id"
	defaultProvider = "Google"
)

// TokenConfig controls the claims and lifetimes of issued pseudo-tokens.
type TokenConfig struct {
	Issuer     string        `env:"TOKEN_ISSUER"      envDefault:"https://cognito-idp.us-east-1.amazonaws.com/us-east-1_example"`
	ClientID   string        `env:"TOKEN_CLIENT_ID"   envDefault:"example-client-id"`
	Scope      string        `env:"TOKEN_SCOPE"       envDefault:"aws.cognito.signin.user.admin"`
	IDTTL      time.Duration `env:"TOKEN_ID_TTL"      envDefault:"1h"`
	AccessTTL  time.Duration `env:"TOKEN_ACCESS_TTL"  envDefault:"1h"`
	RefreshTTL time.Duration `env:"TOKEN_REFRESH_TTL" envDefault:"720h"`
}

// DefaultTokenConfig returns the values used when nothing is configured.
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		Issuer:     defaultIssuer,
		ClientID:   defaultClientID,
		Scope:      "aws.cognito.signin.user.admin",
		IDTTL:      time.Hour,
		AccessTTL:  time.Hour,
		RefreshTTL: 30 * 24 * time.Hour,
	}
}

// Sanitize restores defaults for blank or non-positive values.
func (c *TokenConfig) Sanitize() {
	def := DefaultTokenConfig()
	if c.Issuer = strings.TrimSpace(c.Issuer); c.Issuer == "" {
		c.Issuer = def.Issuer
	}
	if c.ClientID = strings.TrimSpace(c.ClientID); c.ClientID == "" {
		c.ClientID = def.ClientID
	}
	if c.IDTTL <= 0 {
		c.IDTTL = def.IDTTL
	}
	if c.AccessTTL <= 0 {
		c.AccessTTL = def.AccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = def.RefreshTTL
	}
}

// CredentialConfig controls synthetic cloud credentials.
type CredentialConfig struct {
	TTL time.Duration `env:"CREDENTIALS_TTL" envDefault:"1h"`
}

// Sanitize restores the default lifetime for non-positive values.
func (c *CredentialConfig) Sanitize() {
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
}

// FederationConfig controls the simulated external identity provider.
type FederationConfig struct {
	DefaultProvider  string `env:"FEDERATION_DEFAULT_PROVIDER"  envDefault:"Google"`
	PlaceholderEmail string `env:"FEDERATION_PLACEHOLDER_EMAIL" envDefault:"user@gmail.com"`
	ClientID         string `env:"FEDERATION_CLIENT_ID"         envDefault:"example-client-id"`
	RedirectURL      string `env:"FEDERATION_REDIRECT_URL"      envDefault:"https://example.auth.us-east-1.amazoncognito.com/oauth2/idpresponse"`
}

// Sanitize trims values and restores the default provider and email.
func (c *FederationConfig) Sanitize() {
	if c.DefaultProvider = strings.TrimSpace(c.DefaultProvider); c.DefaultProvider == "" {
		c.DefaultProvider = defaultProvider
	}
	if c.PlaceholderEmail = strings.TrimSpace(c.PlaceholderEmail); c.PlaceholderEmail == "" {
		c.PlaceholderEmail = "user@gmail.com"
	}
	if c.ClientID = strings.TrimSpace(c.ClientID); c.ClientID == "" {
		c.ClientID = defaultClientID
	}
	c.RedirectURL = strings.TrimSpace(c.RedirectURL)
}
