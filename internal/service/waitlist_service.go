package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/notify"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/repo"
)

type WaitlistService struct {
	entries  *repo.WaitlistRepo
	notifier Notifier
	now      func() int64
}

func NewWaitlistService(entries *repo.WaitlistRepo, notifier Notifier, opts ...Option) *WaitlistService {
	o := applyOptions(opts)
	return &WaitlistService{
		entries:  entries,
		notifier: notifier,
		now:      func() int64 { return o.now().Unix() },
	}
}

// Join adds the email to the waitlist. created is false when the address was
// already listed; no confirmation is sent in that case.
func (s *WaitlistService) Join(ctx context.Context, email string) (entry *model.WaitlistEntry, created bool, err error) {
	email, err = normalizeEmail(email)
	if err != nil {
		return nil, false, err
	}
	entry = &model.WaitlistEntry{ID: newID(), Email: email, Ctime: s.now()}
	if err := s.entries.Create(ctx, entry); err != nil {
		if !appErr.IsConflict(err) {
			return nil, false, err
		}
		existing, err := s.entries.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	s.notifier.Dispatch(ctx, notify.WaitlistConfirmation{Email: email})
	logutil.GetLogger(ctx).Info("waitlist joined", zap.String("email", email))
	return entry, true, nil
}
