package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segyhp/investment-engine/internal/domain"
	"github.com/segyhp/investment-engine/internal/lock"
	"github.com/segyhp/investment-engine/internal/notifier"
	"github.com/segyhp/investment-engine/internal/repository"
	"github.com/segyhp/investment-engine/internal/scheduler"
	customError "github.com/segyhp/investment-engine/pkg/errors"
)

// EliminationLockKey guards the scan across every process sharing the store.
const EliminationLockKey = "lock:investment-elimination"

const (
	DefaultRunHistoryLimit = 20
	MaxRunHistoryLimit     = 100
)

type EliminationService struct {
	investmentRepo repository.InvestmentRepository
	projectRepo    repository.ProjectRepository
	runRepo        repository.EliminationRunRepository
	notifier       notifier.Notifier
	locker         lock.Locker
	schedule       *scheduler.Schedule
	lockTTL        time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

func NewEliminationService(
	investmentRepo repository.InvestmentRepository,
	projectRepo repository.ProjectRepository,
	runRepo repository.EliminationRunRepository,
	notifier notifier.Notifier,
	locker lock.Locker,
	schedule *scheduler.Schedule,
	lockTTL time.Duration,
	logger *zap.Logger,
) *EliminationService {
	return &EliminationService{
		investmentRepo: investmentRepo,
		projectRepo:    projectRepo,
		runRepo:        runRepo,
		notifier:       notifier,
		locker:         locker,
		schedule:       schedule,
		lockTTL:        lockTTL,
		logger:         logger.Named("elimination"),
		now:            time.Now,
	}
}

// SetClock replaces the time source.
func (s *EliminationService) SetClock(now func() time.Time) {
	s.now = now
}

// RunEliminationJob eliminates every pending investment whose payment
// deadline has passed, releases its amount from the project and notifies the
// investor. Only one scan runs at a time. The returned error is non-nil
// exactly when result.Success is false.
func (s *EliminationService) RunEliminationJob(ctx context.Context, trigger string) (*domain.EliminationResult, error) {
	started := s.now()
	result := &domain.EliminationResult{Timestamp: started}

	lease, err := s.locker.Acquire(ctx, EliminationLockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			s.logger.Info("elimination scan skipped, lease held elsewhere", zap.String("trigger", trigger))
			result.Error = customError.ErrJobAlreadyRunning.Error()
			return result, customError.WrapJobAlreadyRunning()
		}
		return s.finish(ctx, trigger, started, result, customError.WrapStoreUnavailable(err))
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release elimination lease", zap.Error(err))
		}
	}()

	overdue, err := s.investmentRepo.FindPendingDueBefore(ctx, started)
	if err != nil {
		return s.finish(ctx, trigger, started, result, customError.WrapStoreUnavailable(err))
	}
	result.ProcessedCount = len(overdue)

	titles := make(map[uuid.UUID]string)
	for _, investment := range overdue {
		if err := ctx.Err(); err != nil {
			return s.finish(ctx, trigger, started, result, customError.WrapStoreUnavailable(err))
		}

		err := s.investmentRepo.Eliminate(ctx, investment.ID, domain.EliminationReason, started)
		if err != nil {
			if errors.Is(err, customError.ErrInvalidStateTransition) || errors.Is(err, customError.ErrInvestmentNotFound) {
				// confirmed or eliminated since the fetch
				s.logger.Debug("investment no longer pending, skipped", zap.String("investment_id", investment.ID.String()))
				continue
			}
			s.logger.Error("elimination aborted",
				zap.String("investment_id", investment.ID.String()),
				zap.Int("eliminated_so_far", result.EliminatedCount),
				zap.Error(err),
			)
			return s.finish(ctx, trigger, started, result, customError.WrapStoreUnavailable(err))
		}
		result.EliminatedCount++

		s.logger.Info("investment eliminated",
			zap.String("investment_id", investment.ID.String()),
			zap.String("project_id", investment.ProjectID.String()),
			zap.String("user_id", investment.UserID),
			zap.String("amount", investment.Amount.String()),
		)

		if s.notifyEliminated(ctx, investment, s.projectTitle(ctx, titles, investment.ProjectID), started) {
			result.NotificationsCreated++
		}
	}

	return s.finish(ctx, trigger, started, result, nil)
}

// finish stamps and records the run. Failing to record it is only logged.
func (s *EliminationService) finish(ctx context.Context, trigger string, started time.Time, result *domain.EliminationResult, runErr error) (*domain.EliminationResult, error) {
	result.Timestamp = s.now()
	result.Success = runErr == nil
	if runErr != nil {
		result.Error = runErr.Error()
	}

	run := domain.NewEliminationRun(trigger, started, result)
	if err := s.runRepo.Create(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("failed to record elimination run", zap.String("run_id", run.ID.String()), zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("trigger", trigger),
		zap.Bool("success", result.Success),
		zap.Int("processed", result.ProcessedCount),
		zap.Int("eliminated", result.EliminatedCount),
		zap.Int("notifications", result.NotificationsCreated),
		zap.Duration("duration", result.Timestamp.Sub(started)),
	}
	if runErr != nil {
		s.logger.Error("elimination scan failed", append(fields, zap.Error(runErr))...)
		return result, runErr
	}
	s.logger.Info("elimination scan completed", fields...)
	return result, nil
}

func (s *EliminationService) projectTitle(ctx context.Context, cache map[uuid.UUID]string, projectID uuid.UUID) string {
	if title, ok := cache[projectID]; ok {
		return title
	}
	title := "your project"
	if project, err := s.projectRepo.GetByID(ctx, projectID); err == nil {
		title = project.Title
	} else {
		s.logger.Warn("project lookup failed", zap.String("project_id", projectID.String()), zap.Error(err))
	}
	cache[projectID] = title
	return title
}

func (s *EliminationService) notifyEliminated(ctx context.Context, investment *domain.Investment, projectTitle string, at time.Time) bool {
	investmentID := investment.ID
	notification := &domain.Notification{
		ID:           uuid.New(),
		UserID:       investment.UserID,
		InvestmentID: &investmentID,
		Type:         domain.NotificationTypeElimination,
		Title:        "Investment Eliminated",
		Message: fmt.Sprintf(
			"Your investment of %s EGP in %q has been automatically eliminated due to non-payment within the payment deadline. The security deposit of %s EGP has been forfeited.",
			investment.Amount.StringFixed(moneyScale), projectTitle, investment.SecurityDeposit.StringFixed(moneyScale),
		),
		CreatedAt: at,
	}

	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("investment_id", investment.ID.String()),
			zap.String("user_id", investment.UserID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// GetEliminationStatus reports how many investments the next scan would
// eliminate, when the last scan finished and when the next is scheduled.
func (s *EliminationService) GetEliminationStatus(ctx context.Context) (*domain.EliminationStatus, error) {
	now := s.now()

	pending, err := s.investmentRepo.CountPendingDueBefore(ctx, now)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	status := &domain.EliminationStatus{
		PendingEliminations: pending,
		NextScheduledRun:    s.schedule.Next(now),
	}

	latest, err := s.runRepo.Latest(ctx)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}
	if latest != nil {
		lastRun := latest.FinishedAt
		status.LastRun = &lastRun
	}

	return status, nil
}

// ListEliminationRuns returns recorded scans, newest first.
func (s *EliminationService) ListEliminationRuns(ctx context.Context, limit int) ([]*domain.EliminationRun, error) {
	if limit <= 0 {
		limit = DefaultRunHistoryLimit
	}
	if limit > MaxRunHistoryLimit {
		limit = MaxRunHistoryLimit
	}

	runs, err := s.runRepo.List(ctx, limit)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}
	return runs, nil
}
