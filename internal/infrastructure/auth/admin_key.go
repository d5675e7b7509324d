package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Admin key cost for bcrypt
const adminKeyCost = 12

var (
	// ErrAdminKeyNotConfigured is returned when no admin key hash is set
	ErrAdminKeyNotConfigured = errors.New("admin key is not configured")
	// ErrInvalidAdminKey is returned when the presented key does not match
	ErrInvalidAdminKey = errors.New("invalid admin key")
)

// AdminKeyVerifier checks a presented admin key against the configured
// bcrypt hash. It backs the X-Admin-Key fallback on approval routes for
// callers without an admin JWT.
type AdminKeyVerifier struct {
	hash []byte
}

// NewAdminKeyVerifier creates a verifier from a bcrypt hash. An empty hash
// yields a verifier that rejects every key.
func NewAdminKeyVerifier(hash string) *AdminKeyVerifier {
	return &AdminKeyVerifier{hash: []byte(hash)}
}

// Enabled reports whether an admin key hash is configured
func (v *AdminKeyVerifier) Enabled() bool {
	return len(v.hash) > 0
}

// Verify compares the presented key against the configured hash
func (v *AdminKeyVerifier) Verify(key string) error {
	if !v.Enabled() {
		return ErrAdminKeyNotConfigured
	}
	if key == "" {
		return ErrInvalidAdminKey
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return ErrInvalidAdminKey
	}
	return nil
}

// HashAdminKey hashes a plaintext admin key for configuration. Used by
// operators to produce the auth.admin_key_hash config value.
func HashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), adminKeyCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
