package worker

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// AssignmentSweeper periodically retries Pending grievances that have no
// outstanding proposal. Grievances land in that state when a decline found no
// alternate or when a department had nobody available at filing time; the
// sweep picks them up once capacity returns.
type AssignmentSweeper struct {
	grievances repository.GrievanceRepository
	assigner   *service.AssignmentService
	cfg        config.SweepConfig
	logger     *zap.Logger
	cron       *cron.Cron
}

// NewAssignmentSweeper creates the sweeper.
func NewAssignmentSweeper(grievances repository.GrievanceRepository, assigner *service.AssignmentService, cfg config.SweepConfig, logger *zap.Logger) *AssignmentSweeper {
	return &AssignmentSweeper{
		grievances: grievances,
		assigner:   assigner,
		cfg:        cfg,
		logger:     logger,
		cron:       cron.New(),
	}
}

// Start schedules the sweep. No-op when disabled by configuration.
func (w *AssignmentSweeper) Start() error {
	if !w.cfg.Enabled {
		w.logger.Info("assignment sweep disabled")
		return nil
	}
	if _, err := w.cron.AddFunc(w.cfg.Schedule, func() {
		w.Sweep(context.Background())
	}); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("assignment sweep scheduled", zap.String("schedule", w.cfg.Schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (w *AssignmentSweeper) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one batch. Departments still out of capacity stay queued for the
// next run; that is the expected steady state, not a failure.
func (w *AssignmentSweeper) Sweep(ctx context.Context) {
	pending, err := w.grievances.ListPendingUnproposed(ctx, w.cfg.BatchSize)
	if err != nil {
		w.logger.Error("assignment sweep list failed", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	var proposed int
	for _, grievance := range pending {
		if _, _, err := w.assigner.Assign(ctx, grievance.ID); err != nil {
			if apperrors.HasCode(err, apperrors.CodeNoCapacity) {
				w.logger.Debug("department still out of capacity",
					zap.String("grievance_id", grievance.ID),
					zap.String("department", string(grievance.Department)))
				continue
			}
			w.logger.Warn("assignment sweep retry failed",
				zap.String("grievance_id", grievance.ID),
				zap.Error(err))
			continue
		}
		proposed++
	}
	w.logger.Info("assignment sweep finished",
		zap.Int("scanned", len(pending)),
		zap.Int("proposed", proposed))
}
