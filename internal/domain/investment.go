package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/investment-engine/pkg/utils"
)

// InvestmentStatus is the lifecycle state of a pledge.
type InvestmentStatus string

const (
	InvestmentStatusPending    InvestmentStatus = "pending"
	InvestmentStatusConfirmed  InvestmentStatus = "confirmed"
	InvestmentStatusEliminated InvestmentStatus = "eliminated"
)

// EliminationReason is recorded on every eliminated investment.
const EliminationReason = "Payment deadline exceeded"

// Pledge bounds, in currency units.
var (
	MinInvestmentAmount = decimal.NewFromInt(10)
	MaxInvestmentAmount = decimal.NewFromInt(1000000)
)

// IsTerminal reports whether no further transition is possible from s.
func (s InvestmentStatus) IsTerminal() bool {
	return s == InvestmentStatusConfirmed || s == InvestmentStatusEliminated
}

// CanTransition reports whether from -> to is a legal lifecycle move.
// Only pending investments move, and only to confirmed or eliminated.
func CanTransition(from, to InvestmentStatus) bool {
	if from != InvestmentStatusPending {
		return false
	}
	return to == InvestmentStatusConfirmed || to == InvestmentStatusEliminated
}

// PaymentWindow is the grace period an investor has to pay after pledging.
type PaymentWindow string

const (
	PaymentWindow48h  PaymentWindow = "48h"
	PaymentWindow72h  PaymentWindow = "72h"
	PaymentWindowWeek PaymentWindow = "1wk"
)

// Duration returns the length of the window.
func (w PaymentWindow) Duration() time.Duration {
	switch w {
	case PaymentWindow72h:
		return 72 * time.Hour
	case PaymentWindowWeek:
		return 7 * 24 * time.Hour
	default:
		return 48 * time.Hour
	}
}

// ParsePaymentWindow validates a window name.
func ParsePaymentWindow(s string) (PaymentWindow, error) {
	switch w := PaymentWindow(s); w {
	case PaymentWindow48h, PaymentWindow72h, PaymentWindowWeek:
		return w, nil
	}
	return "", fmt.Errorf("unknown payment window %q: must be one of 48h, 72h, 1wk", s)
}

// Investment is a pledge against a project.
type Investment struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	ProjectID         uuid.UUID        `json:"project_id" db:"project_id"`
	UserID            string           `json:"user_id" db:"user_id"`
	Amount            decimal.Decimal  `json:"amount" db:"amount"`
	SecurityDeposit   decimal.Decimal  `json:"security_deposit" db:"security_deposit"`
	Status            InvestmentStatus `json:"status" db:"status"`
	PaymentWindow     PaymentWindow    `json:"payment_window" db:"payment_window"`
	PaymentDue        time.Time        `json:"payment_due" db:"payment_due"`
	ConfirmedAt       *time.Time       `json:"confirmed_at,omitempty" db:"confirmed_at"`
	EliminatedAt      *time.Time       `json:"eliminated_at,omitempty" db:"eliminated_at"`
	EliminationReason *string          `json:"elimination_reason,omitempty" db:"elimination_reason"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// TotalDue is the amount the investor must pay to confirm.
func (i *Investment) TotalDue() decimal.Decimal {
	return i.Amount.Add(i.SecurityDeposit)
}

// IsOverdue reports whether a pending investment has passed its deadline at now.
func (i *Investment) IsOverdue(now time.Time) bool {
	return i.Status == InvestmentStatusPending && utils.IsDateOverdue(i.PaymentDue, now)
}

// DTOs for requests and responses

type CreateInvestmentRequest struct {
	ProjectID     uuid.UUID       `json:"project_id" validate:"required"`
	UserID        string          `json:"user_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required,gte=10,lte=1000000"`
	PaymentWindow PaymentWindow   `json:"payment_window" validate:"omitempty,oneof=48h 72h 1wk"`
}

type InvestmentResponse struct {
	Investment *Investment     `json:"investment"`
	TotalDue   decimal.Decimal `json:"total_due"`
	Payment    *Payment        `json:"payment,omitempty"`
	// Countdown to the payment deadline; zero once the investment is settled.
	TimeRemainingSeconds int64 `json:"time_remaining_seconds"`
	IsOverdue            bool  `json:"is_overdue"`
}
