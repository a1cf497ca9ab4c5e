package jobs

import (
	"context"
	"time"

	"github.com/straye-as/crm-api/internal/domain"
	"go.uber.org/zap"
)

// SummaryReconcileJobName is the name of the admin summary reconcile job
const SummaryReconcileJobName = "admin_summary_reconcile"

// DefaultReconcileTimeout bounds one reconcile run
const DefaultReconcileTimeout = 30 * time.Second

// SummaryReconciler recomputes the admin summary from the user records
type SummaryReconciler interface {
	Reconcile(ctx context.Context) (*domain.AdminSummary, error)
}

// SummaryReconcileJob repairs drift between the stored admin summary and the user records.
// Drift appears when a summary recompute fails after a user write succeeded.
type SummaryReconcileJob struct {
	reconciler SummaryReconciler
	logger     *zap.Logger
	timeout    time.Duration
}

func NewSummaryReconcileJob(reconciler SummaryReconciler, logger *zap.Logger, timeout time.Duration) *SummaryReconcileJob {
	if timeout <= 0 {
		timeout = DefaultReconcileTimeout
	}
	return &SummaryReconcileJob{
		reconciler: reconciler,
		logger:     logger,
		timeout:    timeout,
	}
}

// Run executes one reconcile pass. It is called by the scheduler.
func (j *SummaryReconcileJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	summary, err := j.reconciler.Reconcile(ctx)
	if err != nil {
		j.logger.Error("admin summary reconcile failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Debug("admin summary reconcile completed",
		zap.Bool("has_any_admin", summary.HasAnyAdmin),
		zap.Int("admin_count", summary.AdminCount),
		zap.Duration("duration", time.Since(start)))
}

// RegisterSummaryReconcileJob registers the reconcile job with the scheduler. When
// runOnStartup is true a first pass runs in the background right away.
func RegisterSummaryReconcileJob(scheduler *Scheduler, reconciler SummaryReconciler, logger *zap.Logger, cronExpr string, runOnStartup bool) error {
	job := NewSummaryReconcileJob(reconciler, logger, DefaultReconcileTimeout)

	if runOnStartup {
		go job.Run()
	}

	return scheduler.AddJob(SummaryReconcileJobName, cronExpr, job.Run)
}
