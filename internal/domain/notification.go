package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationTypeElimination      = "elimination"
	NotificationTypePaymentConfirmed = "payment_confirmed"
)

// Notification is a message addressed to an investor.
type Notification struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	InvestmentID *uuid.UUID `json:"investment_id,omitempty" db:"investment_id"`
	Type         string     `json:"type" db:"type"`
	Title        string     `json:"title" db:"title"`
	Message      string     `json:"message" db:"message"`
	Read         bool       `json:"read" db:"is_read"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
