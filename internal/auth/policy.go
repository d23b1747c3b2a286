// Package auth decides whether a presented admin credential may write.
package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/bobmcallan/medterms/internal/common"
)

// HeaderName carries the admin password on write requests.
const HeaderName = "X-Admin-Password"

// Policy authorizes write operations from a single shared credential.
type Policy interface {
	Authorize(credential string) bool
	// Enabled reports whether any credential can ever succeed.
	Enabled() bool
}

// SharedSecretPolicy accepts exactly one plaintext secret.
type SharedSecretPolicy struct {
	secret []byte
}

// NewSharedSecretPolicy returns a policy for secret. An empty secret denies everything.
func NewSharedSecretPolicy(secret string) *SharedSecretPolicy {
	return &SharedSecretPolicy{secret: []byte(secret)}
}

func (p *SharedSecretPolicy) Authorize(credential string) bool {
	if len(p.secret) == 0 || credential == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), p.secret) == 1
}

func (p *SharedSecretPolicy) Enabled() bool {
	return len(p.secret) > 0
}

// HashedSecretPolicy checks the credential against a bcrypt hash.
type HashedSecretPolicy struct {
	hash []byte
}

// NewHashedSecretPolicy validates hash and returns a policy for it.
func NewHashedSecretPolicy(hash string) (*HashedSecretPolicy, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid admin password hash: %w", err)
	}
	return &HashedSecretPolicy{hash: []byte(hash)}, nil
}

func (p *HashedSecretPolicy) Authorize(credential string) bool {
	if credential == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(p.hash, []byte(credential)) == nil
}

func (p *HashedSecretPolicy) Enabled() bool {
	return true
}

// DenyAllPolicy rejects every credential. Used when no password is configured.
type DenyAllPolicy struct{}

func (DenyAllPolicy) Authorize(string) bool { return false }
func (DenyAllPolicy) Enabled() bool         { return false }

// HashPassword returns a bcrypt hash suitable for admin_password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	// bcrypt rejects inputs over 72 bytes
	if len(password) > 72 {
		return "", fmt.Errorf("password must be at most 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NewPolicyFromConfig picks the policy for the configured credential. A hash
// takes precedence over a plaintext password.
func NewPolicyFromConfig(config *common.AuthConfig) (Policy, error) {
	switch {
	case config.AdminPasswordHash != "":
		return NewHashedSecretPolicy(config.AdminPasswordHash)
	case config.AdminPassword != "":
		return NewSharedSecretPolicy(config.AdminPassword), nil
	default:
		return DenyAllPolicy{}, nil
	}
}
