package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculatePaymentDue(t *testing.T) {
	baseDate := time.Date(2025, 11, 15, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name     string
		window   time.Duration
		expected time.Time
	}{
		{
			name:     "48 hours",
			window:   48 * time.Hour,
			expected: time.Date(2025, 11, 17, 23, 59, 59, 0, time.UTC),
		},
		{
			name:     "72 hours",
			window:   72 * time.Hour,
			expected: time.Date(2025, 11, 18, 23, 59, 59, 0, time.UTC),
		},
		{
			name:     "one week",
			window:   7 * 24 * time.Hour,
			expected: time.Date(2025, 11, 22, 23, 59, 59, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculatePaymentDue(baseDate, tt.window)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsDateOverdue(t *testing.T) {
	now := time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsDateOverdue(now.Add(-time.Second), now))
	assert.False(t, IsDateOverdue(now, now))
	assert.False(t, IsDateOverdue(now.Add(time.Hour), now))
}

func TestTimeRemaining(t *testing.T) {
	now := time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 90*time.Minute, TimeRemaining(now.Add(90*time.Minute), now))
	assert.Equal(t, time.Duration(0), TimeRemaining(now.Add(-time.Hour), now))
}

func TestClampAtZero(t *testing.T) {
	assert.True(t, ClampAtZero(decimal.NewFromInt(-250)).IsZero())
	assert.True(t, ClampAtZero(decimal.NewFromInt(250)).Equal(decimal.NewFromInt(250)))
}
