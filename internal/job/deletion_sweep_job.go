package job

import "context"

type DeletionSweeper interface {
	SweepExpiredDeletions(ctx context.Context) (int, error)
}

// DeletionSweepJob hard-deletes accounts whose deletion grace window has passed.
type DeletionSweepJob struct {
	accounts DeletionSweeper
}

func NewDeletionSweepJob(accounts DeletionSweeper) *DeletionSweepJob {
	return &DeletionSweepJob{accounts: accounts}
}

func (j *DeletionSweepJob) Name() string {
	return "deletion_sweep"
}

func (j *DeletionSweepJob) Run(ctx context.Context) error {
	if j.accounts == nil {
		return nil
	}
	_, err := j.accounts.SweepExpiredDeletions(ctx)
	return err
}
