package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

// AdminVerifier checks the shared secret that gates admin intents.
type AdminVerifier struct {
	hash  string
	plain [sha256.Size]byte
}

// NewAdminVerifier prefers an Argon2id hash when one is configured; otherwise the plain
// secret is compared in constant time. The hash is validated up front.
func NewAdminVerifier(password, encodedHash string) (*AdminVerifier, error) {
	if encodedHash != "" {
		if _, _, _, err := DecodeHash(encodedHash); err != nil {
			return nil, err
		}
		return &AdminVerifier{hash: encodedHash}, nil
	}
	if password == "" {
		return nil, errors.New("an admin password or password hash is required")
	}
	return &AdminVerifier{plain: sha256.Sum256([]byte(password))}, nil
}

// Verify reports whether password is the admin secret.
func (v *AdminVerifier) Verify(password string) bool {
	if v.hash != "" {
		ok, err := ComparePasswordAndHash(password, v.hash)
		return err == nil && ok
	}
	// digests keep the comparison length-independent
	sum := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare(sum[:], v.plain[:]) == 1
}
