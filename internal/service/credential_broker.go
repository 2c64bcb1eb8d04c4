package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/target/idflow/config"
	"github.com/target/idflow/internal/clock"
	domainauth "github.com/target/idflow/internal/domain/auth"
)

const (
	accessKeyPrefix    = "ASIA"
	sessionTokenPrefix = "IQoJb3JpZ2luX2VjE"
)

// CredentialBroker issues synthetic temporary cloud credentials. The values
// have the right prefixes and lengths and grant access to nothing.
type CredentialBroker struct {
	ttl   time.Duration
	clock clock.Clock
}

// NewCredentialBroker constructs a CredentialBroker.
func NewCredentialBroker(cfg config.CredentialConfig, c clock.Clock) *CredentialBroker {
	cfg.Sanitize()
	if c == nil {
		c = clock.Real{}
	}
	return &CredentialBroker{ttl: cfg.TTL, clock: c}
}

// Issue generates a fresh credential set expiring ttl from now.
func (b *CredentialBroker) Issue() (domainauth.CredentialSet, error) {
	keyID, err := randomBase36(16)
	if err != nil {
		return domainauth.CredentialSet{}, fmt.Errorf("access key id: %w", err)
	}
	secret, err := randomBase36(40)
	if err != nil {
		return domainauth.CredentialSet{}, fmt.Errorf("secret access key: %w", err)
	}
	session, err := randomBase36(50)
	if err != nil {
		return domainauth.CredentialSet{}, fmt.Errorf("session token: %w", err)
	}

	return domainauth.CredentialSet{
		AccessKeyID:     accessKeyPrefix + strings.ToUpper(keyID),
		SecretAccessKey: secret,
		SessionToken:    sessionTokenPrefix + session,
		Expiration:      b.clock.Now().Add(b.ttl),
	}, nil
}
