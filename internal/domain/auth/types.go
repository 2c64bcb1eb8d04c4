// Package auth contains domain-level types for the simulated identity flow:
// principals, pseudo-tokens, synthetic cloud credentials and the flow steps.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// PrincipalStatus mirrors the user-pool status of a principal.
type PrincipalStatus string

const (
	StatusConfirmed        PrincipalStatus = "CONFIRMED"
	StatusExternalProvider PrincipalStatus = "EXTERNAL_PROVIDER"
)

// Principal is a registered identity, created locally or through a federated provider.
type Principal struct {
	ID         string          `json:"id"`
	Email      string          `json:"email"`
	Status     PrincipalStatus `json:"status"`
	Provider   string          `json:"provider,omitempty"` // set for EXTERNAL_PROVIDER only
	CreatedAt  time.Time       `json:"created_at"`
	LastSignIn *time.Time      `json:"last_sign_in,omitempty"`
}

// IsFederated returns true if the principal came from an external provider.
func (p Principal) IsFederated() bool { return p.Status == StatusExternalProvider }

// Summary returns the list-view projection of the principal.
func (p Principal) Summary() UserSummary {
	return UserSummary{Email: p.Email, Status: p.Status, Provider: p.Provider}
}

// UserSummary is what presentation layers show in the user list.
type UserSummary struct {
	Email    string          `json:"email"`
	Status   PrincipalStatus `json:"status"`
	Provider string          `json:"provider,omitempty"`
}

// TokenUse discriminates the three token kinds.
type TokenUse string

const (
	TokenUseID      TokenUse = "id"
	TokenUseAccess  TokenUse = "access"
	TokenUseRefresh TokenUse = "refresh"
)

// ProviderIdentity is the identities claim entry carried by federated id tokens.
type ProviderIdentity struct {
	ProviderName string `json:"providerName"`
}

// Claims is the payload of a pseudo-token. Which optional claims are present
// depends on TokenUse.
type Claims struct {
	Subject       string             `json:"sub"`
	Email         string             `json:"email,omitempty"`
	EmailVerified bool               `json:"email_verified,omitempty"`
	Issuer        string             `json:"iss"`
	Audience      string             `json:"aud,omitempty"`
	ClientID      string             `json:"client_id,omitempty"`
	TokenUse      TokenUse           `json:"token_use"`
	Scope         string             `json:"scope,omitempty"`
	Identities    []ProviderIdentity `json:"identities,omitempty"`
	IssuedAt      int64              `json:"iat"`
	ExpiresAt     int64              `json:"exp"`
}

// Token is a three-segment JWT-shaped artifact.
//
// The signature segment is random bytes, not a signature. Tokens produced by
// this package must never be trusted by anything.
type Token struct {
	Raw       string    `json:"raw"`
	Use       TokenUse  `json:"use"`
	Claims    Claims    `json:"claims"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenSet holds the session tokens. Any field may be nil.
type TokenSet struct {
	IDToken      *Token `json:"id_token,omitempty"`
	AccessToken  *Token `json:"access_token,omitempty"`
	RefreshToken *Token `json:"refresh_token,omitempty"`
}

// IsEmpty returns true when no token is present.
func (ts TokenSet) IsEmpty() bool {
	return ts.IDToken == nil && ts.AccessToken == nil && ts.RefreshToken == nil
}

// Clone returns a copy that shares no pointers with ts.
func (ts TokenSet) Clone() TokenSet {
	return TokenSet{
		IDToken:      cloneToken(ts.IDToken),
		AccessToken:  cloneToken(ts.AccessToken),
		RefreshToken: cloneToken(ts.RefreshToken),
	}
}

// OAuth2 converts the set into the token shape used by golang.org/x/oauth2,
// with the id token carried as the "id_token" extra. Returns nil without an access token.
func (ts TokenSet) OAuth2() *oauth2.Token {
	if ts.AccessToken == nil {
		return nil
	}
	tok := &oauth2.Token{
		AccessToken: ts.AccessToken.Raw,
		TokenType:   "Bearer",
		Expiry:      ts.AccessToken.ExpiresAt,
	}
	if ts.RefreshToken != nil {
		tok.RefreshToken = ts.RefreshToken.Raw
	}
	if ts.IDToken != nil {
		tok = tok.WithExtra(map[string]any{"id_token": ts.IDToken.Raw})
	}
	return tok
}

func cloneToken(t *Token) *Token {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Claims.Identities = append([]ProviderIdentity(nil), t.Claims.Identities...)
	return &cp
}

// CredentialSet is a synthetic set of temporary cloud credentials.
// The values are random strings with the right prefixes and grant nothing.
type CredentialSet struct {
	AccessKeyID     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"secret_access_key"`
	SessionToken    string    `json:"session_token"`
	Expiration      time.Time `json:"expiration"`
}

// ExternalIdentity is what a federation provider hands back after its callback.
type ExternalIdentity struct {
	Subject  string
	Email    string
	Provider string
}
