package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/metrics"
	"github.com/xxxsen/hemline/internal/notify"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/repo"
)

// ObjectRemover deletes stored uploads. It is satisfied by filestore.Store.
type ObjectRemover interface {
	Delete(ctx context.Context, key string) error
}

// AccountService owns the deletion lifecycle: request, cancel and the
// periodic sweep that hard-deletes accounts past the grace window.
type AccountService struct {
	db       *sqlx.DB
	users    *repo.UserRepo
	creds    *repo.CredentialRepo
	tokens   *TokenService
	notifier Notifier
	files    ObjectRemover
	grace    time.Duration
	now      func() time.Time
}

func NewAccountService(db *sqlx.DB, users *repo.UserRepo, creds *repo.CredentialRepo, tokens *TokenService,
	notifier Notifier, files ObjectRemover, grace time.Duration, opts ...Option) *AccountService {
	o := applyOptions(opts)
	return &AccountService{
		db:       db,
		users:    users,
		creds:    creds,
		tokens:   tokens,
		notifier: notifier,
		files:    files,
		grace:    grace,
		now:      o.now,
	}
}

func (s *AccountService) Grace() time.Duration {
	return s.grace
}

// RequestDeletion flags the account and revokes every token it holds. The
// caller has to verify again to get the restricted session.
func (s *AccountService) RequestDeletion(ctx context.Context, userID string) error {
	now := s.now()
	err := dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
		if err := s.users.WithTx(tx).MarkForDeletion(ctx, userID, now.Unix()); err != nil {
			return err
		}
		return s.tokens.WithTx(tx).RevokeAll(ctx, userID, "")
	})
	if err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	requestedAt := now
	if user.DeletionRequestedAt != nil {
		requestedAt = time.Unix(*user.DeletionRequestedAt, 0)
	}
	s.notifier.Dispatch(ctx, notify.DeletionNotice{
		Email:       user.Email,
		Name:        user.DisplayName(),
		RequestedAt: requestedAt,
		PurgeAt:     requestedAt.Add(s.grace),
	})
	logutil.GetLogger(ctx).Info("account deletion requested", zap.String("user_id", userID))
	return nil
}

// CancelDeletion clears the flag and returns a full session.
func (s *AccountService) CancelDeletion(ctx context.Context, userID string) (*Session, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.ToBeDeleted {
		return nil, appErr.ErrInvalid
	}
	var pair *TokenPair
	err = dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
		if err := s.users.WithTx(tx).ClearDeletion(ctx, userID, s.now().Unix()); err != nil {
			return err
		}
		var err error
		pair, err = s.tokens.WithTx(tx).MintPair(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	user.ToBeDeleted = false
	user.DeletionRequestedAt = nil
	logutil.GetLogger(ctx).Info("account deletion cancelled", zap.String("user_id", userID))
	return &Session{
		User:             user,
		AccessToken:      pair.Access.Token,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshToken:     pair.Refresh.Token,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
	}, nil
}

// SweepExpiredDeletions hard-deletes every account whose deletion request is
// at least one grace period old and returns how many were removed. Listing and
// deleting share one transaction and the delete re-checks the flag, so an
// account cancelled mid-sweep survives.
func (s *AccountService) SweepExpiredDeletions(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace).Unix()
	var (
		deleted []string
		keys    = make(map[string][]string)
	)
	err := dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
		users := s.users.WithTx(tx)
		due, err := users.ListDeletionDue(ctx, cutoff)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}
		ids := make([]string, 0, len(due))
		for _, u := range due {
			ids = append(ids, u.ID)
			if u.BusinessImageKey != "" {
				keys[u.ID] = append(keys[u.ID], u.BusinessImageKey)
			}
		}
		gallery, err := repo.NewGalleryRepo(tx).StorageKeysByUsers(ctx, ids)
		if err != nil {
			return err
		}
		for id, ks := range gallery {
			keys[id] = append(keys[id], ks...)
		}
		if _, err := repo.NewTokenRepo(tx).DeleteForDueUsers(ctx, ids, cutoff); err != nil {
			return err
		}
		if _, err := s.creds.WithTx(tx).DeleteForDueUsers(ctx, ids, cutoff); err != nil {
			return err
		}
		deleted, err = users.DeleteDue(ctx, ids, cutoff)
		return err
	})
	if err != nil {
		return 0, err
	}
	logger := logutil.GetLogger(ctx)
	if s.files != nil {
		for _, id := range deleted {
			for _, key := range keys[id] {
				if err := s.files.Delete(ctx, key); err != nil {
					logger.Warn("delete stored upload failed", zap.String("user_id", id), zap.String("key", key), zap.Error(err))
				}
			}
		}
	}
	metrics.SweptAccounts(len(deleted))
	logger.Info("deletion sweep finished", zap.Int("deleted", len(deleted)), zap.Int64("cutoff", cutoff))
	return len(deleted), nil
}
