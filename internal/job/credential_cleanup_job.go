package job

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type CredentialPurger interface {
	DeleteExpired(ctx context.Context, retain time.Duration) (int64, error)
}

type TokenPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CredentialCleanupJob drops one-time credentials that expired more than
// retain ago and token rows that are already expired.
type CredentialCleanupJob struct {
	creds  CredentialPurger
	tokens TokenPurger
	retain time.Duration
}

func NewCredentialCleanupJob(creds CredentialPurger, tokens TokenPurger, retain time.Duration) *CredentialCleanupJob {
	if retain <= 0 {
		retain = 24 * time.Hour
	}
	return &CredentialCleanupJob{creds: creds, tokens: tokens, retain: retain}
}

func (j *CredentialCleanupJob) Name() string {
	return "credential_cleanup"
}

func (j *CredentialCleanupJob) Run(ctx context.Context) error {
	creds, err := j.creds.DeleteExpired(ctx, j.retain)
	if err != nil {
		return fmt.Errorf("delete expired credentials: %w", err)
	}
	tokens, err := j.tokens.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}
	if creds > 0 || tokens > 0 {
		logutil.GetLogger(ctx).Info("expired credentials removed",
			zap.Int64("credentials", creds),
			zap.Int64("tokens", tokens),
		)
	}
	return nil
}
