package job_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hemline/internal/job"
	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/repo"
	"github.com/xxxsen/hemline/internal/service"
	"github.com/xxxsen/hemline/internal/testutil"
)

type sweeperFunc func(ctx context.Context) (int, error)

func (f sweeperFunc) SweepExpiredDeletions(ctx context.Context) (int, error) { return f(ctx) }

func TestDeletionSweepJob(t *testing.T) {
	calls := 0
	j := job.NewDeletionSweepJob(sweeperFunc(func(ctx context.Context) (int, error) {
		calls++
		return 2, nil
	}))
	require.Equal(t, "deletion_sweep", j.Name())
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, 1, calls)

	failing := job.NewDeletionSweepJob(sweeperFunc(func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	}))
	require.Error(t, failing.Run(context.Background()))
}

func TestCredentialCleanupJob(t *testing.T) {
	conn := testutil.OpenTestDB(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	clock := service.WithClock(func() time.Time { return now })

	users := repo.NewUserRepo(conn)
	user, err := users.FindOrCreate(ctx, &model.User{ID: "u1", Email: "a@example.com", Ctime: 1, Mtime: 1})
	require.NoError(t, err)

	credRepo := repo.NewCredentialRepo(conn)
	tokenRepo := repo.NewTokenRepo(conn)
	old := now.Add(-25 * time.Hour).Unix()
	recent := now.Add(-time.Hour).Unix()
	require.NoError(t, credRepo.Create(ctx, &model.OneTimeCredential{ID: "c1", UserID: user.ID, Code: "111111", Token: "t1", ExpiresAt: old, Ctime: old}))
	require.NoError(t, credRepo.Create(ctx, &model.OneTimeCredential{ID: "c2", UserID: user.ID, Code: "222222", Token: "t2", ExpiresAt: recent, Ctime: recent}))
	require.NoError(t, tokenRepo.Record(ctx, &model.Token{ID: "k1", UserID: user.ID, Token: "expired", TokenType: "access", ExpiresAt: recent, Ctime: old}))
	require.NoError(t, tokenRepo.Record(ctx, &model.Token{ID: "k2", UserID: user.ID, Token: "live", TokenType: "refresh", ExpiresAt: now.Add(time.Hour).Unix(), Ctime: old}))

	creds := service.NewCredentialService(conn, credRepo, 15*time.Minute, clock)
	tokens := service.NewTokenService(tokenRepo, nil, 0, 0, clock)
	j := job.NewCredentialCleanupJob(creds, tokens, 24*time.Hour)
	require.Equal(t, "credential_cleanup", j.Name())
	require.NoError(t, j.Run(ctx))

	left, err := credRepo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, "c2", left[0].ID)

	active, err := tokenRepo.ListActive(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "k2", active[0].ID)
}
