package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	block chan struct{}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		<-j.block
	}
	return nil
}

func TestAddJobRejectsBadSpecAndDuplicates(t *testing.T) {
	s := NewCronScheduler(time.Minute)
	job := &countingJob{name: "deletion_sweep"}
	require.Error(t, s.AddJob(job, "not a spec"))
	require.Error(t, s.AddJob(job, "0 0 3 * * *"))
	require.NoError(t, s.AddJob(job, "0 3 * * *"))
	require.Error(t, s.AddJob(job, "*/30 * * * *"))
	require.Equal(t, []string{"deletion_sweep"}, s.Jobs())
}

func TestWrapSkipsOverlappingRuns(t *testing.T) {
	s := NewCronScheduler(0)
	job := &countingJob{name: "slow", block: make(chan struct{})}
	run := s.wrap(job, "* * * * *")

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	run()
	require.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	<-done
	job.block = nil
	run()
	require.Equal(t, int32(2), job.runs.Load())
}
