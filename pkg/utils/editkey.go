package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// editKeyBytes is the entropy of a generated edit key (32 base64url chars).
const editKeyBytes = 24

// NewEditKey generates a random per-event edit key. The plaintext is returned
// to the organizer exactly once at creation; only the hash is stored.
func NewEditKey() (string, error) {
	buf := make([]byte, editKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate edit key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashEditKey hashes a plain edit key using bcrypt.
func HashEditKey(key string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckEditKey compares a plain edit key with its stored hash.
func CheckEditKey(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
