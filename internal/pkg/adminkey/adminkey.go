package adminkey

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const MinLength = 16

var ErrTooShort = errors.New("admin key must be at least 16 characters")

// Generate returns a random 32-byte key, base64url encoded.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the bcrypt hash stored in admin_key_hash.
func Hash(key string) (string, error) {
	if len(key) < MinLength {
		return "", ErrTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether key matches hash. An empty hash or key never matches.
func Verify(hash, key string) bool {
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
