package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment records the settlement that confirmed an investment.
type Payment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	InvestmentID  uuid.UUID       `json:"investment_id" db:"investment_id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	Method        string          `json:"method" db:"method"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PaidAt        time.Time       `json:"paid_at" db:"paid_at"`
}

// PaymentResult is a successful settlement reported by a gateway or an operator.
type PaymentResult struct {
	TransactionID string          `json:"transaction_id" validate:"required"`
	Method        string          `json:"method" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
}

// PayRequest asks the engine to charge the investor through the gateway.
type PayRequest struct {
	Method  string            `json:"method" validate:"required,oneof=paymob instapay fawry wallet"`
	Details map[string]string `json:"details"`
}
