package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// activationSecretBytes is the entropy of an activation secret before encoding.
const activationSecretBytes = 32

// PasswordVerifier compares a bcrypt hash with a plaintext candidate.
type PasswordVerifier interface {
	// Compare returns nil when password matches hashedPassword.
	Compare(hashedPassword, password string) error
}

// BcryptVerifier implements PasswordVerifier using bcrypt.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a new BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements PasswordVerifier.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// NewActivationSecret returns a random base64url secret and its bcrypt hash.
// Only the hash is persisted; the secret travels in the approval link.
func NewActivationSecret(cost int) (secret, hash string, err error) {
	buf := make([]byte, activationSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate activation secret: %w", err)
	}
	secret = base64.RawURLEncoding.EncodeToString(buf)

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", "", fmt.Errorf("hash activation secret: %w", err)
	}
	return secret, string(hashed), nil
}
