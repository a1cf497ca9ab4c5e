package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (r *countingReconciler) Reconcile(ctx context.Context) (*domain.AdminSummary, error) {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("reconcile called without a deadline")
	}
	if r.err != nil {
		return nil, r.err
	}
	return &domain.AdminSummary{HasAnyAdmin: true, AdminCount: 1}, nil
}

func TestScheduler_AddAndRemoveJob(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("one", "@every 1h", func() {}))
	assert.Error(t, s.AddJob("one", "@every 1h", func() {}), "duplicate names are rejected")
	assert.Error(t, s.AddJob("bad", "not a cron expression", func() {}))
	assert.ElementsMatch(t, []string{"one"}, s.GetJobNames())

	require.NoError(t, s.RemoveJob("one"))
	assert.Empty(t, s.GetJobNames())
	assert.Error(t, s.RemoveJob("one"))
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())
	var runs atomic.Int32
	require.NoError(t, s.AddJob("tick", "* * * * * *", func() { runs.Add(1) }))

	s.Start()
	defer func() { <-s.Stop().Done() }()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_RecoversPanickingJob(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())
	var runs atomic.Int32
	require.NoError(t, s.AddJob("panics", "* * * * * *", func() {
		runs.Add(1)
		panic("boom")
	}))

	s.Start()
	defer func() { <-s.Stop().Done() }()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
}

func TestSummaryReconcileJob_Run(t *testing.T) {
	r := &countingReconciler{}
	job := jobs.NewSummaryReconcileJob(r, zap.NewNop(), 0)

	job.Run()
	assert.Equal(t, int32(1), r.calls.Load())

	r.err = errors.New("store offline")
	job.Run()
	assert.Equal(t, int32(2), r.calls.Load())
}

func TestRegisterSummaryReconcileJob(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())
	r := &countingReconciler{}

	require.NoError(t, jobs.RegisterSummaryReconcileJob(s, r, zap.NewNop(), "@every 10m", true))
	assert.Contains(t, s.GetJobNames(), jobs.SummaryReconcileJobName)
	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	assert.Error(t, jobs.RegisterSummaryReconcileJob(s, r, zap.NewNop(), "@every 10m", false))
}
