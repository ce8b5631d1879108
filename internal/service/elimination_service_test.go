package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/investment-engine/internal/domain"
	"github.com/segyhp/investment-engine/internal/lock"
	"github.com/segyhp/investment-engine/internal/mocks"
	"github.com/segyhp/investment-engine/internal/repository"
	"github.com/segyhp/investment-engine/internal/scheduler"
	customError "github.com/segyhp/investment-engine/pkg/errors"
)

func TestRunEliminationJob_EliminatesOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 10000)
	inv := f.invest(t, p.ID, "user-1", "5000")

	// one hour past the deadline
	f.clock.Advance(49 * time.Hour)
	result, err := f.elimination.RunEliminationJob(ctx, domain.TriggerScheduled)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, 1, result.EliminatedCount)
	assert.Equal(t, 1, result.NotificationsCreated)
	assert.Empty(t, result.Error)
	assert.Equal(t, f.clock.Now(), result.Timestamp)

	got, err := f.investments.GetInvestment(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentStatusEliminated, got.Investment.Status)
	require.NotNil(t, got.Investment.EliminatedAt)
	assert.Equal(t, f.clock.Now(), *got.Investment.EliminatedAt)
	require.NotNil(t, got.Investment.EliminationReason)
	assert.Equal(t, "Payment deadline exceeded", *got.Investment.EliminationReason)
	assert.Nil(t, got.Investment.ConfirmedAt)

	project, err := f.investments.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, project.RaisedAmount.IsZero())

	notifications, err := f.investments.ListNotifications(ctx, "user-1", false)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.NotificationTypeElimination, notifications[0].Type)
	assert.Equal(t, "Investment Eliminated", notifications[0].Title)
	assert.Contains(t, notifications[0].Message, "5000.00 EGP")
	assert.Contains(t, notifications[0].Message, `"Green Valley Farms"`)
	assert.Contains(t, notifications[0].Message, "250.00 EGP has been forfeited")
}

func TestRunEliminationJob_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 10000)
	f.invest(t, p.ID, "user-1", "3000")
	f.invest(t, p.ID, "user-2", "2000")

	f.clock.Advance(72 * time.Hour)
	first, err := f.elimination.RunEliminationJob(ctx, domain.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 2, first.EliminatedCount)

	second, err := f.elimination.RunEliminationJob(ctx, domain.TriggerScheduled)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.ProcessedCount)
	assert.Equal(t, 0, second.EliminatedCount)
	assert.Equal(t, 0, second.NotificationsCreated)

	project, err := f.investments.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, project.RaisedAmount.IsZero())

	for _, user := range []string{"user-1", "user-2"} {
		n, err := f.investments.ListNotifications(ctx, user, false)
		require.NoError(t, err)
		assert.Len(t, n, 1, user)
	}
}

func TestRunEliminationJob_LeavesOthersAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 100000)

	overdue := f.invest(t, p.ID, "user-1", "1000")
	paid := f.invest(t, p.ID, "user-2", "2000")
	_, err := f.investments.ConfirmPayment(ctx, paid.ID, domain.PaymentResult{
		TransactionID: "TXN-PAID", Method: "wallet", Amount: decimal.NewFromInt(2100),
	})
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	fresh := f.invest(t, p.ID, "user-3", "4000")

	// overdue's deadline passed, fresh's has not
	f.clock.Advance(25 * time.Hour)
	result, err := f.elimination.RunEliminationJob(ctx, domain.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, 1, result.EliminatedCount)

	statuses := map[uuid.UUID]domain.InvestmentStatus{
		overdue.ID: domain.InvestmentStatusEliminated,
		paid.ID:    domain.InvestmentStatusConfirmed,
		fresh.ID:   domain.InvestmentStatusPending,
	}
	for id, want := range statuses {
		got, err := f.investments.GetInvestment(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Investment.Status)
	}

	project, err := f.investments.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, project.RaisedAmount.Equal(decimal.NewFromInt(6000)))
}

func TestRunEliminationJob_DeadlineBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 10000)
	inv := f.invest(t, p.ID, "user-1", "100")

	// paymentDue < now is required; equality is not overdue
	f.clock.Advance(48 * time.Hour)
	result, err := f.elimination.RunEliminationJob(ctx, domain.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 0, result.EliminatedCount)

	f.clock.Advance(time.Nanosecond)
	result, err = f.elimination.RunEliminationJob(ctx, domain.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, result.EliminatedCount)

	got, err := f.investments.GetInvestment(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentStatusEliminated, got.Investment.Status)
}

func TestRunEliminationJob_LeaseHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 10000)
	inv := f.invest(t, p.ID, "user-1", "100")
	f.clock.Advance(72 * time.Hour)

	lease, err := f.locker.Acquire(ctx, EliminationLockKey, time.Minute)
	require.NoError(t, err)

	result, err := f.elimination.RunEliminationJob(ctx, domain.TriggerManual)
	assert.ErrorIs(t, err, customError.ErrJobAlreadyRunning)
	assert.False(t, result.Success)
	assert.Equal(t, "elimination job already running", result.Error)
	assert.Equal(t, 0, result.ProcessedCount)

	got, err := f.investments.GetInvestment(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentStatusPending, got.Investment.Status)

	require.NoError(t, lease.Release(ctx))
	result, err = f.elimination.RunEliminationJob(ctx, domain.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, result.EliminatedCount)
}

func TestRunEliminationJob_ReleasesLease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.elimination.RunEliminationJob(ctx, domain.TriggerScheduled)
	require.NoError(t, err)

	lease, err := f.locker.Acquire(ctx, EliminationLockKey, time.Minute)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}

type mockedElimination struct {
	investments *mocks.MockInvestmentRepository
	projects    *mocks.MockProjectRepository
	runs        *mocks.MockEliminationRunRepository
	notifier    *mocks.MockNotifier
	service     *EliminationService
}

func newMockedElimination(t *testing.T) *mockedElimination {
	t.Helper()
	m := &mockedElimination{
		investments: &mocks.MockInvestmentRepository{},
		projects:    &mocks.MockProjectRepository{},
		runs:        &mocks.MockEliminationRunRepository{},
		notifier:    &mocks.MockNotifier{},
	}
	schedule, err := scheduler.ParseSchedule("0 0 * * * *", time.UTC)
	require.NoError(t, err)

	m.service = NewEliminationService(m.investments, m.projects, m.runs, m.notifier, lock.NewLocalLocker(), schedule, time.Minute, zap.NewNop())
	m.service.SetClock(func() time.Time { return t0 })
	return m
}

func pendingInvestment(amount int64) *domain.Investment {
	amt := decimal.NewFromInt(amount)
	return &domain.Investment{
		ID:              uuid.New(),
		ProjectID:       uuid.New(),
		UserID:          "user-" + uuid.NewString()[:8],
		Amount:          amt,
		SecurityDeposit: domain.SecurityDeposit(amt),
		Status:          domain.InvestmentStatusPending,
		PaymentDue:      t0.Add(-time.Hour),
	}
}

func TestRunEliminationJob_FetchFailureTouchesNothing(t *testing.T) {
	m := newMockedElimination(t)
	m.investments.On("FindPendingDueBefore", mock.Anything, t0).Return(nil, errors.New("connection refused"))
	m.runs.On("Create", mock.Anything, mock.MatchedBy(func(run *domain.EliminationRun) bool {
		return !run.Success && run.Error != nil && run.Trigger == domain.TriggerScheduled
	})).Return(nil)

	result, err := m.service.RunEliminationJob(context.Background(), domain.TriggerScheduled)

	assert.ErrorIs(t, err, customError.ErrStoreUnavailable)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "connection refused")
	assert.Equal(t, 0, result.EliminatedCount)
	m.investments.AssertNotCalled(t, "Eliminate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	m.runs.AssertExpectations(t)
}

func TestRunEliminationJob_StoreFailureMidBatch(t *testing.T) {
	m := newMockedElimination(t)
	a, b, c := pendingInvestment(100), pendingInvestment(200), pendingInvestment(300)

	m.investments.On("FindPendingDueBefore", mock.Anything, t0).Return([]*domain.Investment{a, b, c}, nil)
	m.investments.On("Eliminate", mock.Anything, a.ID, domain.EliminationReason, t0).Return(nil)
	m.investments.On("Eliminate", mock.Anything, b.ID, domain.EliminationReason, t0).Return(errors.New("deadlock detected"))
	m.projects.On("GetByID", mock.Anything, a.ProjectID).Return(&domain.Project{ID: a.ProjectID, Title: "Project A"}, nil)
	m.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	m.runs.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := m.service.RunEliminationJob(context.Background(), domain.TriggerScheduled)

	assert.ErrorIs(t, err, customError.ErrStoreUnavailable)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ProcessedCount)
	assert.Equal(t, 1, result.EliminatedCount)
	assert.Equal(t, 1, result.NotificationsCreated)
	m.investments.AssertNotCalled(t, "Eliminate", mock.Anything, c.ID, mock.Anything, mock.Anything)
}

func TestRunEliminationJob_SkipsLostRaces(t *testing.T) {
	m := newMockedElimination(t)
	confirmedMeanwhile, overdue := pendingInvestment(100), pendingInvestment(2000)

	m.investments.On("FindPendingDueBefore", mock.Anything, t0).Return([]*domain.Investment{confirmedMeanwhile, overdue}, nil)
	m.investments.On("Eliminate", mock.Anything, confirmedMeanwhile.ID, mock.Anything, mock.Anything).
		Return(customError.ErrInvalidStateTransition)
	m.investments.On("Eliminate", mock.Anything, overdue.ID, mock.Anything, mock.Anything).Return(nil)
	m.projects.On("GetByID", mock.Anything, overdue.ProjectID).Return(&domain.Project{Title: "Project B"}, nil)
	m.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == overdue.UserID && *n.InvestmentID == overdue.ID
	})).Return(nil).Once()
	m.runs.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := m.service.RunEliminationJob(context.Background(), domain.TriggerScheduled)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.EliminatedCount)
	assert.Equal(t, 1, result.NotificationsCreated)
	m.notifier.AssertExpectations(t)
}

func TestRunEliminationJob_NotifierFailureIsNotFatal(t *testing.T) {
	m := newMockedElimination(t)
	a, b := pendingInvestment(100), pendingInvestment(200)

	m.investments.On("FindPendingDueBefore", mock.Anything, t0).Return([]*domain.Investment{a, b}, nil)
	m.investments.On("Eliminate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.projects.On("GetByID", mock.Anything, mock.Anything).Return(nil, customError.ErrProjectNotFound)
	m.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == a.UserID
	})).Return(customError.WrapNotificationDeliveryFailed(a.UserID, errors.New("queue full")))
	m.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == b.UserID
	})).Return(nil)
	m.runs.On("Create", mock.Anything, mock.Anything).Return(errors.New("history table locked"))

	result, err := m.service.RunEliminationJob(context.Background(), domain.TriggerScheduled)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.EliminatedCount)
	assert.Equal(t, 1, result.NotificationsCreated)
	m.investments.AssertNumberOfCalls(t, "Eliminate", 2)
}

func TestRunEliminationJob_RacesWithConfirmation(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		ctx := context.Background()
		p := f.project(t, 10000)
		inv := f.invest(t, p.ID, "user-1", "500")

		// Past the deadline for the scan, so bypass the service-level
		// deadline check and race on the store directly.
		f.clock.Advance(49 * time.Hour)

		var wg sync.WaitGroup
		var confirmErr error
		var result *domain.EliminationResult
		wg.Add(2)
		go func() {
			defer wg.Done()
			confirmErr = f.store.Investments().Confirm(ctx, &domain.Payment{
				ID: uuid.New(), InvestmentID: inv.ID, TransactionID: "TXN-R", Method: "wallet",
				Amount: inv.TotalDue(), PaidAt: f.clock.Now(),
			})
		}()
		go func() {
			defer wg.Done()
			result, _ = f.elimination.RunEliminationJob(ctx, domain.TriggerScheduled)
		}()
		wg.Wait()

		got, err := f.investments.GetInvestment(ctx, inv.ID)
		require.NoError(t, err)
		project, err := f.investments.GetProject(ctx, p.ID)
		require.NoError(t, err)

		if confirmErr == nil {
			assert.Equal(t, domain.InvestmentStatusConfirmed, got.Investment.Status)
			assert.Equal(t, 0, result.EliminatedCount)
			assert.True(t, project.RaisedAmount.Equal(decimal.NewFromInt(500)))
		} else {
			assert.ErrorIs(t, confirmErr, customError.ErrInvalidStateTransition)
			assert.Equal(t, domain.InvestmentStatusEliminated, got.Investment.Status)
			assert.Equal(t, 1, result.EliminatedCount)
			assert.True(t, project.RaisedAmount.IsZero())
		}
	}
}

func TestRunEliminationJob_ConcurrentScans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 1000000)
	for i := 0; i < 50; i++ {
		f.invest(t, p.ID, "user-"+uuid.NewString()[:8], "1000")
	}
	f.clock.Advance(49 * time.Hour)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		eliminated int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, _ := f.elimination.RunEliminationJob(ctx, domain.TriggerManual)
			mu.Lock()
			eliminated += result.EliminatedCount
			mu.Unlock()
		}()
	}
	wg.Wait()

	// leftovers from skipped scans are picked up by the next one
	result, err := f.elimination.RunEliminationJob(ctx, domain.TriggerScheduled)
	require.NoError(t, err)
	eliminated += result.EliminatedCount

	assert.Equal(t, 50, eliminated)

	project, err := f.investments.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, project.RaisedAmount.IsZero())
}

func TestGetEliminationStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, 10000)
	f.invest(t, p.ID, "user-1", "100")
	f.invest(t, p.ID, "user-2", "200")

	f.clock.Advance(49*time.Hour + 2*time.Minute)

	status, err := f.elimination.GetEliminationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.PendingEliminations)
	assert.Nil(t, status.LastRun)
	// testing profile: every five minutes
	assert.Equal(t, t0.Add(49*time.Hour+5*time.Minute), status.NextScheduledRun)

	_, err = f.elimination.RunEliminationJob(ctx, domain.TriggerManual)
	require.NoError(t, err)

	status, err = f.elimination.GetEliminationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.PendingEliminations)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, f.clock.Now(), *status.LastRun)
}

func TestGetEliminationStatus_StoreFailure(t *testing.T) {
	m := newMockedElimination(t)
	m.investments.On("CountPendingDueBefore", mock.Anything, t0).Return(0, errors.New("timeout"))

	_, err := m.service.GetEliminationStatus(context.Background())
	assert.ErrorIs(t, err, customError.ErrStoreUnavailable)
}

func TestListEliminationRuns(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"default", 0, DefaultRunHistoryLimit},
		{"negative", -5, DefaultRunHistoryLimit},
		{"explicit", 5, 5},
		{"capped", 1000, MaxRunHistoryLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockedElimination(t)
			m.runs.On("List", mock.Anything, tt.wantLimit).Return([]*domain.EliminationRun{}, nil)

			runs, err := m.service.ListEliminationRuns(context.Background(), tt.limit)
			require.NoError(t, err)
			assert.Empty(t, runs)
			m.runs.AssertExpectations(t)
		})
	}
}

func TestListEliminationRuns_RecordsEveryScan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.elimination.RunEliminationJob(ctx, domain.TriggerScheduled)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.elimination.RunEliminationJob(ctx, domain.TriggerManual)
	require.NoError(t, err)

	runs, err := f.elimination.ListEliminationRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, domain.TriggerManual, runs[0].Trigger)
	assert.Equal(t, domain.TriggerScheduled, runs[1].Trigger)
	assert.True(t, runs[0].Success)
}

var _ repository.InvestmentRepository = (*mocks.MockInvestmentRepository)(nil)
