package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

func (t TokenType) Valid() bool {
	return t == TokenTypeAccess || t == TokenTypeRefresh
}

// ErrDecode covers every parse failure: bad signature, wrong algorithm or a
// malformed payload.
var ErrDecode = errors.New("token decode failed")

type Claims struct {
	UserID    string    `json:"user_id"`
	TokenType TokenType `json:"token_type"`
	jwtlib.RegisteredClaims
}

// Expired reports whether the embedded expiry is at or before now.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// Codec signs and parses HS256 session tokens. Parse never rejects a token for
// being expired; callers compare Claims.Expired themselves.
type Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwtlib.Parser
}

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCodec(secret []byte, opts ...Option) *Codec {
	c := &Codec{
		secret: secret,
		now:    time.Now,
		parser: jwtlib.NewParser(
			jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
			jwtlib.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) Issue(userID string, tokenType TokenType, ttl time.Duration) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}
	if !tokenType.Valid() {
		return "", time.Time{}, fmt.Errorf("unknown token type %q", tokenType)
	}
	now := c.now()
	expiresAt := now.Add(ttl).Truncate(time.Second)
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (c *Codec) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := c.parser.ParseWithClaims(tokenString, claims, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !token.Valid || claims.UserID == "" || !claims.TokenType.Valid() || claims.ExpiresAt == nil {
		return nil, ErrDecode
	}
	return claims, nil
}
