package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/investment-engine/internal/domain"
)

// Implementations report missing rows and lost transitions with the sentinels
// from pkg/errors (ErrInvestmentNotFound, ErrProjectNotFound,
// ErrFundingTargetExceeded, ErrInvalidStateTransition), wrapped with %w.

// InvestmentRepository defines the interface for investment data operations
type InvestmentRepository interface {
	// Create persists a pending investment and reserves its amount against the
	// project's funding target in the same unit of work.
	Create(ctx context.Context, investment *domain.Investment) error

	// GetByID retrieves an investment by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Investment, error)

	// ListByUserID retrieves a user's investments, newest first
	ListByUserID(ctx context.Context, userID string) ([]*domain.Investment, error)

	// FindPendingDueBefore returns pending investments whose payment was due before cutoff
	FindPendingDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Investment, error)

	// CountPendingDueBefore counts what FindPendingDueBefore would return
	CountPendingDueBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Confirm moves the investment from pending to confirmed and records the payment.
	Confirm(ctx context.Context, payment *domain.Payment) error

	// Eliminate moves the investment from pending to eliminated and releases its
	// amount from the project's raised total, clamped at zero.
	Eliminate(ctx context.Context, id uuid.UUID, reason string, at time.Time) error

	// GetPayment returns the payment that confirmed an investment, or nil if none
	GetPayment(ctx context.Context, investmentID uuid.UUID) (*domain.Payment, error)
}

// ProjectRepository defines the interface for project data operations
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
}

// NotificationRepository defines the interface for investor notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByUserID(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// EliminationRunRepository stores the history of elimination scans
type EliminationRunRepository interface {
	Create(ctx context.Context, run *domain.EliminationRun) error

	// Latest returns the most recent run, or nil if the scan never ran
	Latest(ctx context.Context) (*domain.EliminationRun, error)

	List(ctx context.Context, limit int) ([]*domain.EliminationRun, error)
}
