package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/investment-engine/internal/domain"
	customError "github.com/segyhp/investment-engine/pkg/errors"
	"github.com/segyhp/investment-engine/pkg/utils"
)

// MemoryStore keeps every table in process memory behind one mutex. It backs
// DATABASE_DRIVER=memory and the service tests; state is lost on restart.
type MemoryStore struct {
	mu            sync.Mutex
	investments   map[uuid.UUID]domain.Investment
	projects      map[uuid.UUID]domain.Project
	payments      map[uuid.UUID]domain.Payment
	notifications map[uuid.UUID]domain.Notification
	runs          []domain.EliminationRun
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		investments:   make(map[uuid.UUID]domain.Investment),
		projects:      make(map[uuid.UUID]domain.Project),
		payments:      make(map[uuid.UUID]domain.Payment),
		notifications: make(map[uuid.UUID]domain.Notification),
	}
}

func (s *MemoryStore) Investments() InvestmentRepository { return memoryInvestments{s} }

func (s *MemoryStore) Projects() ProjectRepository { return memoryProjects{s} }

func (s *MemoryStore) Notifications() NotificationRepository { return memoryNotifications{s} }

func (s *MemoryStore) EliminationRuns() EliminationRunRepository { return memoryRuns{s} }

type memoryInvestments struct{ s *MemoryStore }

func (m memoryInvestments) Create(_ context.Context, inv *domain.Investment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	p, ok := m.s.projects[inv.ProjectID]
	if !ok {
		return fmt.Errorf("investment_repo.Create: %w", customError.ErrProjectNotFound)
	}
	raised := p.RaisedAmount.Add(inv.Amount)
	if raised.GreaterThan(p.TargetAmount) {
		return fmt.Errorf("investment_repo.Create: %w", customError.ErrFundingTargetExceeded)
	}
	p.RaisedAmount = raised
	p.UpdatedAt = inv.CreatedAt
	m.s.projects[p.ID] = p
	m.s.investments[inv.ID] = *inv
	return nil
}

func (m memoryInvestments) GetByID(_ context.Context, id uuid.UUID) (*domain.Investment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	inv, ok := m.s.investments[id]
	if !ok {
		return nil, fmt.Errorf("investment_repo.GetByID: %w", customError.ErrInvestmentNotFound)
	}
	return &inv, nil
}

func (m memoryInvestments) ListByUserID(_ context.Context, userID string) ([]*domain.Investment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []*domain.Investment
	for _, inv := range m.s.investments {
		if inv.UserID == userID {
			inv := inv
			out = append(out, &inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memoryInvestments) FindPendingDueBefore(_ context.Context, cutoff time.Time) ([]*domain.Investment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []*domain.Investment
	for _, inv := range m.s.investments {
		if inv.IsOverdue(cutoff) {
			inv := inv
			out = append(out, &inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDue.Before(out[j].PaymentDue) })
	return out, nil
}

func (m memoryInvestments) CountPendingDueBefore(ctx context.Context, cutoff time.Time) (int, error) {
	pending, err := m.FindPendingDueBefore(ctx, cutoff)
	return len(pending), err
}

func (m memoryInvestments) Confirm(_ context.Context, payment *domain.Payment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	inv, ok := m.s.investments[payment.InvestmentID]
	if !ok {
		return fmt.Errorf("investment_repo.Confirm: %w", customError.ErrInvestmentNotFound)
	}
	if !domain.CanTransition(inv.Status, domain.InvestmentStatusConfirmed) {
		return fmt.Errorf("investment_repo.Confirm: %w", customError.ErrInvalidStateTransition)
	}

	paidAt := payment.PaidAt
	inv.Status = domain.InvestmentStatusConfirmed
	inv.ConfirmedAt = &paidAt
	inv.UpdatedAt = paidAt
	m.s.investments[inv.ID] = inv
	m.s.payments[inv.ID] = *payment
	return nil
}

func (m memoryInvestments) Eliminate(_ context.Context, id uuid.UUID, reason string, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	inv, ok := m.s.investments[id]
	if !ok {
		return fmt.Errorf("investment_repo.Eliminate: %w", customError.ErrInvestmentNotFound)
	}
	if !domain.CanTransition(inv.Status, domain.InvestmentStatusEliminated) {
		return fmt.Errorf("investment_repo.Eliminate: %w", customError.ErrInvalidStateTransition)
	}

	inv.Status = domain.InvestmentStatusEliminated
	inv.EliminatedAt = &at
	inv.EliminationReason = &reason
	inv.UpdatedAt = at
	m.s.investments[id] = inv

	if p, ok := m.s.projects[inv.ProjectID]; ok {
		p.RaisedAmount = utils.ClampAtZero(p.RaisedAmount.Sub(inv.Amount))
		p.UpdatedAt = at
		m.s.projects[p.ID] = p
	}
	return nil
}

func (m memoryInvestments) GetPayment(_ context.Context, investmentID uuid.UUID) (*domain.Payment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	p, ok := m.s.payments[investmentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type memoryProjects struct{ s *MemoryStore }

func (m memoryProjects) Create(_ context.Context, project *domain.Project) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	m.s.projects[project.ID] = *project
	return nil
}

func (m memoryProjects) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	p, ok := m.s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project_repo.GetByID: %w", customError.ErrProjectNotFound)
	}
	return &p, nil
}

func (m memoryProjects) List(_ context.Context) ([]*domain.Project, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	out := make([]*domain.Project, 0, len(m.s.projects))
	for _, p := range m.s.projects {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memoryNotifications struct{ s *MemoryStore }

func (m memoryNotifications) Create(_ context.Context, n *domain.Notification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	m.s.notifications[n.ID] = *n
	return nil
}

func (m memoryNotifications) ListByUserID(_ context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []*domain.Notification
	for _, n := range m.s.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		n := n
		out = append(out, &n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memoryNotifications) MarkRead(_ context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	n, ok := m.s.notifications[id]
	if !ok {
		return fmt.Errorf("notification_repo.MarkRead: %w", customError.ErrNotificationNotFound)
	}
	n.Read = true
	m.s.notifications[id] = n
	return nil
}

type memoryRuns struct{ s *MemoryStore }

func (m memoryRuns) Create(_ context.Context, run *domain.EliminationRun) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	m.s.runs = append(m.s.runs, *run)
	return nil
}

func (m memoryRuns) Latest(_ context.Context) (*domain.EliminationRun, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if len(m.s.runs) == 0 {
		return nil, nil
	}
	run := m.s.runs[len(m.s.runs)-1]
	return &run, nil
}

func (m memoryRuns) List(_ context.Context, limit int) ([]*domain.EliminationRun, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	out := make([]*domain.EliminationRun, 0, limit)
	for i := len(m.s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		run := m.s.runs[i]
		out = append(out, &run)
	}
	return out, nil
}
