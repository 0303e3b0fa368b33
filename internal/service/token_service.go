package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/pkg/jwt"
	"github.com/xxxsen/hemline/internal/repo"
)

type IssuedToken struct {
	Token     string
	ExpiresAt int64
}

type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// TokenService mints session tokens and keeps the token store in step with
// them. A signed token is honored only while its store row exists.
type TokenService struct {
	tokens     *repo.TokenRepo
	codec      *jwt.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(tokens *repo.TokenRepo, codec *jwt.Codec, accessTTL, refreshTTL time.Duration, opts ...Option) *TokenService {
	o := applyOptions(opts)
	return &TokenService{
		tokens:     tokens,
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        o.now,
	}
}

// WithTx returns a copy whose store writes go through tx.
func (s *TokenService) WithTx(tx dbutil.DBTX) *TokenService {
	cp := *s
	cp.tokens = s.tokens.WithTx(tx)
	return &cp
}

func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// MintPair replaces every token the user holds with one access and one
// refresh token. Run it inside a transaction so a failed step leaves the
// previous session untouched.
func (s *TokenService) MintPair(ctx context.Context, userID string) (*TokenPair, error) {
	now := s.now().Unix()
	if _, err := s.tokens.PurgeExpired(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("purge expired tokens: %w", err)
	}
	if _, err := s.tokens.RevokeAll(ctx, userID, ""); err != nil {
		return nil, fmt.Errorf("revoke tokens: %w", err)
	}
	access, err := s.issue(ctx, userID, jwt.TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(ctx, userID, jwt.TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: *access, Refresh: *refresh}, nil
}

// MintAccess replaces the user's access tokens and leaves refresh tokens alone.
func (s *TokenService) MintAccess(ctx context.Context, userID string) (*IssuedToken, error) {
	now := s.now().Unix()
	if _, err := s.tokens.PurgeExpired(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("purge expired tokens: %w", err)
	}
	if _, err := s.tokens.RevokeAll(ctx, userID, string(jwt.TokenTypeAccess)); err != nil {
		return nil, fmt.Errorf("revoke access tokens: %w", err)
	}
	return s.issue(ctx, userID, jwt.TokenTypeAccess, s.accessTTL)
}

func (s *TokenService) issue(ctx context.Context, userID string, tokenType jwt.TokenType, ttl time.Duration) (*IssuedToken, error) {
	signed, expiresAt, err := s.codec.Issue(userID, tokenType, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	row := &model.Token{
		ID:        newID(),
		UserID:    userID,
		Token:     signed,
		TokenType: string(tokenType),
		ExpiresAt: expiresAt.Unix(),
		Ctime:     s.now().Unix(),
	}
	if err := s.tokens.Record(ctx, row); err != nil {
		if errors.Is(err, appErr.ErrDuplicateToken) {
			logutil.GetLogger(ctx).Error("token store integrity violation: duplicate token",
				zap.String("user_id", userID),
				zap.String("token_type", string(tokenType)),
			)
		}
		return nil, fmt.Errorf("record %s token: %w", tokenType, err)
	}
	return &IssuedToken{Token: signed, ExpiresAt: row.ExpiresAt}, nil
}

// Validate checks a presented token against the codec and the store.
func (s *TokenService) Validate(ctx context.Context, raw string, tokenType jwt.TokenType) (*jwt.Claims, error) {
	if raw == "" {
		return nil, appErr.ErrInvalidCredential
	}
	claims, err := s.codec.Parse(raw)
	if err != nil {
		return nil, appErr.ErrInvalidCredential
	}
	now := s.now()
	if claims.Expired(now) {
		return nil, appErr.ErrExpiredCredential
	}
	if claims.TokenType != tokenType {
		return nil, appErr.ErrInvalidCredential
	}
	if err := s.checkStored(ctx, raw, claims, now); err != nil {
		return nil, err
	}
	return claims, nil
}

// Recheck confirms that a token already accepted by Validate still has its
// store row. Call it on a transaction-scoped copy so the check commits
// together with the writes that depend on it.
func (s *TokenService) Recheck(ctx context.Context, raw string, claims *jwt.Claims) error {
	return s.checkStored(ctx, raw, claims, s.now())
}

func (s *TokenService) checkStored(ctx context.Context, raw string, claims *jwt.Claims, now time.Time) error {
	row, err := s.tokens.FindActive(ctx, raw, string(claims.TokenType), now.Unix())
	if err != nil {
		if appErr.IsNotFound(err) {
			logutil.GetLogger(ctx).Warn("signed token has no active store row",
				zap.String("user_id", claims.UserID),
				zap.String("token_type", string(claims.TokenType)),
			)
			return appErr.ErrRevokedToken
		}
		return err
	}
	if row.UserID != claims.UserID {
		logutil.GetLogger(ctx).Warn("token store owner mismatch",
			zap.String("claim_user_id", claims.UserID),
			zap.String("row_user_id", row.UserID),
		)
		return appErr.ErrRevokedToken
	}
	return nil
}

// RevokeAll deletes the user's tokens of tokenType, or all when tokenType is empty.
func (s *TokenService) RevokeAll(ctx context.Context, userID string, tokenType jwt.TokenType) error {
	_, err := s.tokens.RevokeAll(ctx, userID, string(tokenType))
	return err
}

func (s *TokenService) DeleteExpired(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpiredBefore(ctx, s.now().Unix())
}
