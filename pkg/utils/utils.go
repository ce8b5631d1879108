package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculatePaymentDue returns the deadline for a pledge made at start with the given grace window.
func CalculatePaymentDue(start time.Time, window time.Duration) time.Time {
	return start.Add(window)
}

// IsDateOverdue checks if dueDate is strictly before now
func IsDateOverdue(dueDate, now time.Time) bool {
	return dueDate.Before(now)
}

// TimeRemaining returns how long until dueDate, never negative.
func TimeRemaining(dueDate, now time.Time) time.Duration {
	if d := dueDate.Sub(now); d > 0 {
		return d
	}
	return 0
}

// ClampAtZero returns d, or zero when d is negative.
func ClampAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
