package service

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/target/idflow/config"
	"github.com/target/idflow/internal/clock"
	domainauth "github.com/target/idflow/internal/domain/auth"
)

// signatureBytes is the size of the placeholder signature segment.
const signatureBytes = 32

// tokenHeader is shared by every token. The alg claims RS256 so that JWT
// tooling accepts the shape, but nothing is ever signed.
var tokenHeader = mustEncodeSegment(map[string]string{"alg": "RS256", "typ": "JWT"})

// TokenFactory builds JWT-shaped pseudo-tokens.
//
// The tokens are NOT signed. The third segment is random bytes, so the output
// is format-compatible with JWT parsers but security-inert. Never use these
// tokens to authenticate anything.
type TokenFactory struct {
	cfg   config.TokenConfig
	clock clock.Clock
}

// NewTokenFactory constructs a TokenFactory. Blank config values fall back to defaults.
func NewTokenFactory(cfg config.TokenConfig, c clock.Clock) *TokenFactory {
	cfg.Sanitize()
	if c == nil {
		c = clock.Real{}
	}
	return &TokenFactory{cfg: cfg, clock: c}
}

// IssueFullSet issues id, access and refresh tokens, in that order, for p.
func (f *TokenFactory) IssueFullSet(p *domainauth.Principal) (domainauth.TokenSet, error) {
	if p == nil {
		return domainauth.TokenSet{}, domainauth.ErrNoActivePrincipal
	}
	idTok, accessTok, err := f.ReissueShortLived(p)
	if err != nil {
		return domainauth.TokenSet{}, err
	}
	refreshTok, err := f.issue(p, domainauth.TokenUseRefresh)
	if err != nil {
		return domainauth.TokenSet{}, err
	}
	return domainauth.TokenSet{
		IDToken:      idTok,
		AccessToken:  accessTok,
		RefreshToken: refreshTok,
	}, nil
}

// ReissueShortLived issues fresh id and access tokens. The refresh token is not touched.
func (f *TokenFactory) ReissueShortLived(p *domainauth.Principal) (*domainauth.Token, *domainauth.Token, error) {
	if p == nil {
		return nil, nil, domainauth.ErrNoActivePrincipal
	}
	idTok, err := f.issue(p, domainauth.TokenUseID)
	if err != nil {
		return nil, nil, err
	}
	accessTok, err := f.issue(p, domainauth.TokenUseAccess)
	if err != nil {
		return nil, nil, err
	}
	return idTok, accessTok, nil
}

func (f *TokenFactory) issue(p *domainauth.Principal, use domainauth.TokenUse) (*domainauth.Token, error) {
	// Claims carry whole seconds; keep IssuedAt consistent with iat.
	now := f.clock.Now().Truncate(time.Second)
	ttl := f.ttl(use)
	claims := f.claims(p, use, now, ttl)

	payload, err := encodeSegment(claims)
	if err != nil {
		return nil, fmt.Errorf("encode %s token payload: %w", use, err)
	}
	sig, err := randomSegment(signatureBytes)
	if err != nil {
		return nil, fmt.Errorf("generate %s token signature: %w", use, err)
	}

	return &domainauth.Token{
		Raw:       tokenHeader + "." + payload + "." + sig,
		Use:       use,
		Claims:    claims,
		IssuedAt:  now,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0).In(now.Location()),
	}, nil
}

func (f *TokenFactory) claims(p *domainauth.Principal, use domainauth.TokenUse, now time.Time, ttl time.Duration) domainauth.Claims {
	c := domainauth.Claims{
		Subject:   p.ID,
		Issuer:    f.cfg.Issuer,
		TokenUse:  use,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Unix() + int64(ttl/time.Second),
	}
	switch use {
	case domainauth.TokenUseID:
		c.Email = p.Email
		c.EmailVerified = true
		c.Audience = f.cfg.ClientID
		if p.IsFederated() {
			c.Identities = []domainauth.ProviderIdentity{{ProviderName: p.Provider}}
		}
	case domainauth.TokenUseAccess:
		c.ClientID = f.cfg.ClientID
		c.Scope = f.cfg.Scope
	case domainauth.TokenUseRefresh:
		c.ClientID = f.cfg.ClientID
	}
	return c
}

func (f *TokenFactory) ttl(use domainauth.TokenUse) time.Duration {
	switch use {
	case domainauth.TokenUseID:
		return f.cfg.IDTTL
	case domainauth.TokenUseRefresh:
		return f.cfg.RefreshTTL
	default:
		return f.cfg.AccessTTL
	}
}

func encodeSegment(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func mustEncodeSegment(v any) string {
	s, err := encodeSegment(v)
	if err != nil {
		panic(err)
	}
	return s
}
