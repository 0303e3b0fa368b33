package service

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	credentialCodeDigits = 6
	credentialTokenBytes = 32
)

func newID() string {
	return uuid.NewString()
}

// newCode returns a numeric code without a leading zero.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// newURLToken returns 32 random bytes encoded as unpadded base64url.
func newURLToken() (string, error) {
	buf := make([]byte, credentialTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// newImageID returns 16 lowercase hex characters.
func newImageID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate image id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// newPublicID returns 12 random bytes as unpadded base64url.
func newPublicID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate public id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// newFolderColor picks one of the nine folder colors.
func newFolderColor() int {
	n, err := rand.Int(rand.Reader, big.NewInt(maxFolderColor))
	if err != nil {
		return 1
	}
	return int(n.Int64()) + 1
}
