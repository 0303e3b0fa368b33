package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/repo"
)

const issueAttempts = 5

// CredentialService issues and redeems one-time login credentials.
type CredentialService struct {
	db    *sqlx.DB
	creds *repo.CredentialRepo
	ttl   time.Duration
	now   func() time.Time
}

func NewCredentialService(db *sqlx.DB, creds *repo.CredentialRepo, ttl time.Duration, opts ...Option) *CredentialService {
	o := applyOptions(opts)
	return &CredentialService{db: db, creds: creds, ttl: ttl, now: o.now}
}

func (s *CredentialService) WithTx(tx dbutil.DBTX) *CredentialService {
	cp := *s
	cp.creds = s.creds.WithTx(tx)
	return &cp
}

func (s *CredentialService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a credential for the user. A code or token that collides
// with a live credential is regenerated.
func (s *CredentialService) Issue(ctx context.Context, userID string) (*model.OneTimeCredential, error) {
	for attempt := 1; attempt <= issueAttempts; attempt++ {
		code, err := newCode()
		if err != nil {
			return nil, err
		}
		token, err := newURLToken()
		if err != nil {
			return nil, err
		}
		now := s.now().Unix()
		cred := &model.OneTimeCredential{
			ID:        newID(),
			UserID:    userID,
			Code:      code,
			Token:     token,
			ExpiresAt: now + int64(s.ttl/time.Second),
			Ctime:     now,
		}
		err = dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
			creds := s.creds.WithTx(tx)
			if _, err := creds.RetireStale(ctx, code, now); err != nil {
				return err
			}
			return creds.Create(ctx, cred)
		})
		if err == nil {
			return cred, nil
		}
		if !errors.Is(err, appErr.ErrConflict) {
			return nil, fmt.Errorf("create credential: %w", err)
		}
		logutil.GetLogger(ctx).Info("credential collision, regenerating", zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("create credential: %d collisions in a row", issueAttempts)
}

func (s *CredentialService) RedeemByCode(ctx context.Context, code string) (*model.OneTimeCredential, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErr.ErrInvalid
	}
	if !isNumericCode(code) {
		return nil, appErr.ErrInvalidCredential
	}
	return s.redeem(ctx, repo.CredentialByCode, code)
}

func (s *CredentialService) RedeemByToken(ctx context.Context, token string) (*model.OneTimeCredential, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, appErr.ErrInvalid
	}
	return s.redeem(ctx, repo.CredentialByToken, token)
}

func (s *CredentialService) redeem(ctx context.Context, column, value string) (*model.OneTimeCredential, error) {
	now := s.now().Unix()
	cred, err := s.creds.Redeem(ctx, column, value, now)
	if err == nil {
		return cred, nil
	}
	if !appErr.IsNotFound(err) {
		return nil, err
	}
	// Nothing was redeemed; report expiry separately from everything else.
	latest, err := s.creds.Latest(ctx, column, value)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrInvalidCredential
		}
		return nil, err
	}
	if latest.ExpiresAt <= now {
		return nil, appErr.ErrExpiredCredential
	}
	return nil, appErr.ErrInvalidCredential
}

// DeleteExpired removes credentials that expired before now-retain.
func (s *CredentialService) DeleteExpired(ctx context.Context, retain time.Duration) (int64, error) {
	return s.creds.DeleteExpiredBefore(ctx, s.now().Add(-retain).Unix())
}

func isNumericCode(code string) bool {
	if len(code) != credentialCodeDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
