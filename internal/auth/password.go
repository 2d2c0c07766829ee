// Package auth provides the one-way password digest used for stored
// credentials.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordDigest hashes plaintext passwords and verifies them against stored
// digests. Implementations must never make the plaintext recoverable.
type PasswordDigest interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// BcryptDigest is the production PasswordDigest, backed by bcrypt with the
// library's default cost.
type BcryptDigest struct{}

func (BcryptDigest) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(digest), nil
}

func (BcryptDigest) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
