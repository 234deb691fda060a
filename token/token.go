// Package token produces and caches the short-lived ES256 provider tokens
// APNs requires for bearer authentication.
//
// Signing is expensive and rate-limited by Apple, so a Provider signs lazily:
// a cached token is reused until its age reaches the refresh interval, well
// inside the one-hour window after which APNs rejects it with
// ExpiredProviderToken.
package token

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ValidityWindow is the provider-mandated lifetime of a signed token. APNs
// rejects requests whose token was issued more than an hour ago.
const ValidityWindow = time.Hour

// DefaultRefreshInterval is how old a cached token may grow before Bearer
// re-signs. Half the validity window leaves generous headroom for clock skew.
const DefaultRefreshInterval = 30 * time.Minute

// Configuration errors surfaced by New.
var (
	ErrMissingTeamID      = errors.New("token: missing team ID")
	ErrMissingKeyID       = errors.New("token: missing key ID")
	ErrMissingSigningKey  = errors.New("token: missing signing key")
	ErrBadRefreshInterval = errors.New("token: refresh interval must be shorter than the validity window")
)

// Config holds the credentials issued with a .p8 signing key in the Apple
// developer account.
type Config struct {
	// TeamID is the 10-character Apple developer team identifier.
	TeamID string
	// KeyID is the 10-character identifier of the signing key.
	KeyID string
	// SigningKey is the ECDSA P-256 private key from the .p8 file.
	SigningKey *ecdsa.PrivateKey
	// RefreshInterval overrides DefaultRefreshInterval when positive. It
	// must be strictly shorter than ValidityWindow.
	RefreshInterval time.Duration
	// SigningMethod overrides the ES256 default. Non-nil values are only
	// expected from tests.
	SigningMethod jwt.SigningMethod
}

// Provider signs provider tokens on demand and caches the result.
// It is safe for concurrent use.
type Provider struct {
	teamID  string
	keyID   string
	key     *ecdsa.PrivateKey
	method  jwt.SigningMethod
	refresh time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	bearer   string
	issuedAt time.Time
}

// New validates cfg and returns a Provider with an empty cache. The first
// Bearer call signs.
func New(cfg Config) (*Provider, error) {
	if cfg.TeamID == "" {
		return nil, ErrMissingTeamID
	}
	if cfg.KeyID == "" {
		return nil, ErrMissingKeyID
	}
	if cfg.SigningKey == nil {
		return nil, ErrMissingSigningKey
	}
	refresh := cfg.RefreshInterval
	if refresh == 0 {
		refresh = DefaultRefreshInterval
	}
	if refresh < 0 || refresh >= ValidityWindow {
		return nil, ErrBadRefreshInterval
	}
	method := cfg.SigningMethod
	if method == nil {
		method = jwt.SigningMethodES256
	}
	return &Provider{
		teamID:  cfg.TeamID,
		keyID:   cfg.KeyID,
		key:     cfg.SigningKey,
		method:  method,
		refresh: refresh,
		now:     time.Now,
	}, nil
}

// Bearer returns a currently valid provider token, re-signing only when the
// cached one has aged past the refresh interval. Concurrent callers share a
// single in-flight signing operation.
func (p *Provider) Bearer() (string, error) {
	p.mu.RLock()
	bearer, issuedAt := p.bearer, p.issuedAt
	p.mu.RUnlock()
	if bearer != "" && p.now().Sub(issuedAt) < p.refresh {
		return bearer, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Another caller may have refreshed while we waited for the lock.
	if p.bearer != "" && p.now().Sub(p.issuedAt) < p.refresh {
		return p.bearer, nil
	}

	issuedAt = p.now()
	t := jwt.NewWithClaims(p.method, jwt.RegisteredClaims{
		Issuer:   p.teamID,
		IssuedAt: jwt.NewNumericDate(issuedAt),
	})
	t.Header["kid"] = p.keyID
	bearer, err := t.SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("sign provider token: %w", err)
	}

	p.bearer = bearer
	p.issuedAt = issuedAt
	return bearer, nil
}

// Invalidate drops the cached token so the next Bearer call signs a fresh
// one. Callers use it after APNs reports ExpiredProviderToken.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.bearer = ""
	p.issuedAt = time.Time{}
	p.mu.Unlock()
}

// AuthKeyFromFile reads a .p8 file and parses the ECDSA private key in it.
func AuthKeyFromFile(filename string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read auth key: %w", err)
	}
	return AuthKeyFromBytes(data)
}

// AuthKeyFromBytes parses PEM-encoded PKCS#8 .p8 key material.
func AuthKeyFromBytes(data []byte) (*ecdsa.PrivateKey, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse auth key: %w", err)
	}
	return key, nil
}
