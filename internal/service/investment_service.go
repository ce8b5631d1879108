package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/investment-engine/internal/config"
	"github.com/segyhp/investment-engine/internal/domain"
	"github.com/segyhp/investment-engine/internal/gateway"
	"github.com/segyhp/investment-engine/internal/notifier"
	"github.com/segyhp/investment-engine/internal/repository"
	customError "github.com/segyhp/investment-engine/pkg/errors"
	"github.com/segyhp/investment-engine/pkg/utils"
)

// moneyScale is the number of decimal places accepted on amounts.
const moneyScale = 2

type InvestmentService struct {
	investmentRepo   repository.InvestmentRepository
	projectRepo      repository.ProjectRepository
	notificationRepo repository.NotificationRepository
	notifier         notifier.Notifier
	gateway          gateway.Gateway
	config           *config.Config
	logger           *zap.Logger
	now              func() time.Time
}

func NewInvestmentService(
	investmentRepo repository.InvestmentRepository,
	projectRepo repository.ProjectRepository,
	notificationRepo repository.NotificationRepository,
	notifier notifier.Notifier,
	gateway gateway.Gateway,
	config *config.Config,
	logger *zap.Logger,
) *InvestmentService {
	return &InvestmentService{
		investmentRepo:   investmentRepo,
		projectRepo:      projectRepo,
		notificationRepo: notificationRepo,
		notifier:         notifier,
		gateway:          gateway,
		config:           config,
		logger:           logger.Named("investments"),
		now:              time.Now,
	}
}

// SetClock replaces the time source.
func (s *InvestmentService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateProject registers a funding target investments can pledge against.
func (s *InvestmentService) CreateProject(ctx context.Context, request *domain.CreateProjectRequest) (*domain.Project, error) {
	title := strings.TrimSpace(request.Title)
	if title == "" {
		return nil, customError.WrapValidation("title is required")
	}
	if request.TargetAmount.LessThan(domain.MinProjectTarget) || request.TargetAmount.GreaterThan(domain.MaxProjectTarget) {
		return nil, customError.WrapValidation(fmt.Sprintf(
			"target amount must be between %s and %s", domain.MinProjectTarget, domain.MaxProjectTarget))
	}
	if err := checkScale("target amount", request.TargetAmount); err != nil {
		return nil, err
	}

	now := s.now()
	project := &domain.Project{
		ID:           uuid.New(),
		Title:        title,
		TargetAmount: request.TargetAmount,
		RaisedAmount: decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	s.logger.Info("project created", zap.String("project_id", project.ID.String()), zap.String("target", project.TargetAmount.String()))
	return project, nil
}

func (s *InvestmentService) GetProject(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, mapStoreError(err, projectID)
	}
	return project, nil
}

func (s *InvestmentService) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	projects, err := s.projectRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}
	return projects, nil
}

// QuoteDeposit returns the deposit and total due for a prospective pledge.
func (s *InvestmentService) QuoteDeposit(amount decimal.Decimal) (domain.DepositQuote, error) {
	if err := validateAmount(amount); err != nil {
		return domain.DepositQuote{}, err
	}
	return domain.QuoteDeposit(amount), nil
}

// CreateInvestment validates a pledge, reserves it against the project's
// target and stores it as pending with a payment deadline.
func (s *InvestmentService) CreateInvestment(ctx context.Context, request *domain.CreateInvestmentRequest) (*domain.Investment, error) {
	if strings.TrimSpace(request.UserID) == "" {
		return nil, customError.WrapValidation("user_id is required")
	}
	if request.ProjectID == uuid.Nil {
		return nil, customError.WrapValidation("project_id is required")
	}
	if err := validateAmount(request.Amount); err != nil {
		return nil, err
	}

	window := s.config.GetDefaultPaymentWindow()
	if request.PaymentWindow != "" {
		w, err := domain.ParsePaymentWindow(string(request.PaymentWindow))
		if err != nil {
			return nil, customError.WrapValidation(err.Error())
		}
		window = w
	}

	now := s.now()
	investment := &domain.Investment{
		ID:              uuid.New(),
		ProjectID:       request.ProjectID,
		UserID:          request.UserID,
		Amount:          request.Amount,
		SecurityDeposit: domain.SecurityDeposit(request.Amount),
		Status:          domain.InvestmentStatusPending,
		PaymentWindow:   window,
		PaymentDue:      utils.CalculatePaymentDue(now, window.Duration()),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.investmentRepo.Create(ctx, investment); err != nil {
		switch {
		case errors.Is(err, customError.ErrProjectNotFound):
			return nil, customError.WrapProjectNotFound(request.ProjectID.String())
		case errors.Is(err, customError.ErrFundingTargetExceeded):
			remaining := "0"
			if project, perr := s.projectRepo.GetByID(ctx, request.ProjectID); perr == nil {
				remaining = project.Remaining().String()
			}
			return nil, customError.WrapFundingTargetExceeded(request.ProjectID.String(), remaining)
		default:
			return nil, customError.WrapStoreUnavailable(err)
		}
	}

	s.logger.Info("investment created",
		zap.String("investment_id", investment.ID.String()),
		zap.String("project_id", investment.ProjectID.String()),
		zap.String("user_id", investment.UserID),
		zap.String("amount", investment.Amount.String()),
		zap.Time("payment_due", investment.PaymentDue),
	)
	return investment, nil
}

// GetInvestment returns an investment with its total due and, once
// confirmed, the payment that confirmed it.
func (s *InvestmentService) GetInvestment(ctx context.Context, investmentID uuid.UUID) (*domain.InvestmentResponse, error) {
	investment, err := s.investmentRepo.GetByID(ctx, investmentID)
	if err != nil {
		return nil, mapStoreError(err, investmentID)
	}

	payment, err := s.investmentRepo.GetPayment(ctx, investmentID)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	return describe(investment, payment, s.now()), nil
}

// Describe returns the API view of investment at the current time.
func (s *InvestmentService) Describe(investment *domain.Investment) *domain.InvestmentResponse {
	return describe(investment, nil, s.now())
}

func (s *InvestmentService) ListUserInvestments(ctx context.Context, userID string) ([]*domain.Investment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, customError.WrapValidation("user_id is required")
	}
	investments, err := s.investmentRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}
	return investments, nil
}

// ConfirmPayment moves a pending investment to confirmed after a successful
// payment. It fails for eliminated, confirmed or overdue investments and
// when the amount differs from the total due.
func (s *InvestmentService) ConfirmPayment(ctx context.Context, investmentID uuid.UUID, result domain.PaymentResult) (*domain.InvestmentResponse, error) {
	investment, err := s.investmentRepo.GetByID(ctx, investmentID)
	if err != nil {
		return nil, mapStoreError(err, investmentID)
	}

	if err := checkConfirmable(investment, s.now()); err != nil {
		return nil, err
	}

	if strings.TrimSpace(result.TransactionID) == "" {
		return nil, customError.WrapValidation("transaction_id is required")
	}
	totalDue := investment.TotalDue()
	if !result.Amount.Equal(totalDue) {
		return nil, customError.WrapPaymentAmountMismatch(totalDue.String(), result.Amount.String())
	}

	payment := &domain.Payment{
		ID:            uuid.New(),
		InvestmentID:  investment.ID,
		TransactionID: result.TransactionID,
		Method:        result.Method,
		Amount:        result.Amount,
		PaidAt:        s.now(),
	}
	if err := s.investmentRepo.Confirm(ctx, payment); err != nil {
		if errors.Is(err, customError.ErrInvalidStateTransition) {
			return nil, s.lostTransition(ctx, investmentID)
		}
		return nil, customError.WrapStoreUnavailable(err)
	}

	paidAt := payment.PaidAt
	investment.Status = domain.InvestmentStatusConfirmed
	investment.ConfirmedAt = &paidAt
	investment.UpdatedAt = paidAt

	s.logger.Info("investment confirmed",
		zap.String("investment_id", investment.ID.String()),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("method", payment.Method),
	)

	s.notify(ctx, &domain.Notification{
		ID:           uuid.New(),
		UserID:       investment.UserID,
		InvestmentID: &investment.ID,
		Type:         domain.NotificationTypePaymentConfirmed,
		Title:        "Payment Confirmed",
		Message: fmt.Sprintf("Your payment of %s EGP was received. Your investment of %s EGP is now confirmed.",
			payment.Amount.StringFixed(moneyScale), investment.Amount.StringFixed(moneyScale)),
		CreatedAt: paidAt,
	})

	return describe(investment, payment, paidAt), nil
}

// Pay charges the total due through the payment gateway and confirms the
// investment with the receipt.
func (s *InvestmentService) Pay(ctx context.Context, investmentID uuid.UUID, request *domain.PayRequest) (*domain.InvestmentResponse, error) {
	if err := gateway.ValidateDetails(request.Method, request.Details); err != nil {
		return nil, err
	}

	investment, err := s.investmentRepo.GetByID(ctx, investmentID)
	if err != nil {
		return nil, mapStoreError(err, investmentID)
	}
	if err := checkConfirmable(investment, s.now()); err != nil {
		return nil, err
	}

	receipt, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
		InvestmentID: investment.ID,
		UserID:       investment.UserID,
		Method:       request.Method,
		Amount:       investment.TotalDue(),
		Details:      request.Details,
	})
	if err != nil {
		var decline *gateway.DeclineError
		if errors.As(err, &decline) {
			s.logger.Info("payment declined", zap.String("investment_id", investmentID.String()), zap.String("reason", decline.Reason))
			return nil, customError.WrapPaymentDeclined(decline.Reason, decline)
		}
		if errors.Is(err, customError.ErrValidation) {
			return nil, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, customError.WrapStoreUnavailable(err)
		}
		return nil, customError.WrapPaymentDeclined("payment gateway unavailable", err)
	}

	resp, err := s.ConfirmPayment(ctx, investmentID, domain.PaymentResult{
		TransactionID: receipt.TransactionID,
		Method:        receipt.Method,
		Amount:        receipt.Amount,
	})
	if err != nil {
		// The investor has been charged; the receipt is needed to reconcile or refund.
		s.logger.Warn("payment charged but investment not confirmed",
			zap.String("investment_id", investmentID.String()),
			zap.String("transaction_id", receipt.TransactionID),
			zap.String("method", receipt.Method),
			zap.String("amount", receipt.Amount.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return resp, nil
}

func (s *InvestmentService) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, customError.WrapValidation("user_id is required")
	}
	notifications, err := s.notificationRepo.ListByUserID(ctx, userID, unreadOnly)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}
	return notifications, nil
}

func (s *InvestmentService) MarkNotificationRead(ctx context.Context, notificationID uuid.UUID) error {
	if err := s.notificationRepo.MarkRead(ctx, notificationID); err != nil {
		if errors.Is(err, customError.ErrNotificationNotFound) {
			return customError.WrapNotificationNotFound(notificationID.String())
		}
		return customError.WrapStoreUnavailable(err)
	}
	return nil
}

// lostTransition explains a check-and-set that found the investment no
// longer pending.
func (s *InvestmentService) lostTransition(ctx context.Context, investmentID uuid.UUID) error {
	current, err := s.investmentRepo.GetByID(ctx, investmentID)
	if err != nil {
		return customError.WrapInvalidStateTransition(investmentID.String(), "unknown", string(domain.InvestmentStatusConfirmed))
	}
	if current.Status == domain.InvestmentStatusEliminated {
		return customError.WrapAlreadyEliminated(investmentID.String())
	}
	return customError.WrapInvalidStateTransition(investmentID.String(), string(current.Status), string(domain.InvestmentStatusConfirmed))
}

func (s *InvestmentService) notify(ctx context.Context, notification *domain.Notification) bool {
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("user_id", notification.UserID),
			zap.String("type", notification.Type),
			zap.Error(err),
		)
		return false
	}
	return true
}

func describe(investment *domain.Investment, payment *domain.Payment, now time.Time) *domain.InvestmentResponse {
	resp := &domain.InvestmentResponse{
		Investment: investment,
		TotalDue:   investment.TotalDue(),
		Payment:    payment,
	}
	if investment.Status == domain.InvestmentStatusPending {
		resp.TimeRemainingSeconds = int64(utils.TimeRemaining(investment.PaymentDue, now) / time.Second)
		resp.IsOverdue = utils.IsDateOverdue(investment.PaymentDue, now)
	}
	return resp
}

func checkConfirmable(investment *domain.Investment, now time.Time) error {
	switch investment.Status {
	case domain.InvestmentStatusEliminated:
		return customError.WrapAlreadyEliminated(investment.ID.String())
	case domain.InvestmentStatusConfirmed:
		return customError.WrapInvalidStateTransition(investment.ID.String(), string(investment.Status), string(domain.InvestmentStatusConfirmed))
	}
	if !now.Before(investment.PaymentDue) {
		return customError.WrapPaymentDeadlinePassed(investment.ID.String(), investment.PaymentDue.UTC().Format(time.RFC3339))
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.LessThan(domain.MinInvestmentAmount) || amount.GreaterThan(domain.MaxInvestmentAmount) {
		return customError.WrapValidation(fmt.Sprintf(
			"amount must be between %s and %s", domain.MinInvestmentAmount, domain.MaxInvestmentAmount))
	}
	return checkScale("amount", amount)
}

func checkScale(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(moneyScale)) {
		return customError.WrapValidation(fmt.Sprintf("%s must have at most %d decimal places", field, moneyScale))
	}
	return nil
}

// mapStoreError turns repository not-found sentinels into business errors and
// everything else into StoreUnavailable.
func mapStoreError(err error, id uuid.UUID) error {
	switch {
	case errors.Is(err, customError.ErrInvestmentNotFound):
		return customError.WrapInvestmentNotFound(id.String())
	case errors.Is(err, customError.ErrProjectNotFound):
		return customError.WrapProjectNotFound(id.String())
	default:
		return customError.WrapStoreUnavailable(err)
	}
}
