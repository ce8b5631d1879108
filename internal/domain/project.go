package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Funding target bounds accepted on project submission.
var (
	MinProjectTarget = decimal.NewFromInt(1000)
	MaxProjectTarget = decimal.NewFromInt(10000000)
)

// Project is the funding goal investments pledge against.
type Project struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Title        string          `json:"title" db:"title"`
	TargetAmount decimal.Decimal `json:"target_amount" db:"target_amount"`
	RaisedAmount decimal.Decimal `json:"raised_amount" db:"raised_amount"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Remaining is how much more the project can accept.
func (p *Project) Remaining() decimal.Decimal {
	r := p.TargetAmount.Sub(p.RaisedAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// IsFunded reports whether the target has been reached.
func (p *Project) IsFunded() bool {
	return p.RaisedAmount.GreaterThanOrEqual(p.TargetAmount)
}

type CreateProjectRequest struct {
	Title        string          `json:"title" validate:"required,max=200"`
	TargetAmount decimal.Decimal `json:"target_amount" validate:"required,gte=1000,lte=10000000"`
}
