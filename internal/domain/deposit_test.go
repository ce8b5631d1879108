package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSecurityDeposit(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		expected decimal.Decimal
	}{
		{name: "minimum pledge", amount: decimal.NewFromInt(10), expected: decimal.NewFromInt(5)},
		{name: "small pledge", amount: decimal.NewFromInt(500), expected: decimal.NewFromInt(5)},
		{name: "at threshold", amount: decimal.NewFromInt(1000), expected: decimal.NewFromInt(5)},
		{name: "just above threshold", amount: decimal.RequireFromString("1000.01"), expected: decimal.RequireFromString("50.0005")},
		{name: "percentage pledge", amount: decimal.NewFromInt(5000), expected: decimal.NewFromInt(250)},
		{name: "maximum pledge", amount: decimal.NewFromInt(1000000), expected: decimal.NewFromInt(50000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SecurityDeposit(tt.amount)
			assert.True(t, result.Equal(tt.expected), "Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestSecurityDeposit_FlatBelowThreshold(t *testing.T) {
	for amount := int64(10); amount <= 1000; amount++ {
		d := SecurityDeposit(decimal.NewFromInt(amount))
		if !d.Equal(decimal.NewFromInt(5)) {
			t.Fatalf("deposit(%d) = %s, want 5", amount, d)
		}
	}
}

func TestSecurityDeposit_RateAboveThreshold(t *testing.T) {
	for amount := int64(1001); amount <= 1000000; amount += 997 {
		a := decimal.NewFromInt(amount)
		want := a.Mul(decimal.RequireFromString("0.05"))
		if d := SecurityDeposit(a); !d.Equal(want) {
			t.Fatalf("deposit(%d) = %s, want %s", amount, d, want)
		}
		if total := TotalDue(a); !total.Equal(a.Add(want)) {
			t.Fatalf("totalDue(%d) = %s, want %s", amount, total, a.Add(want))
		}
	}
}

func TestTotalDue_Scenarios(t *testing.T) {
	assert.True(t, TotalDue(decimal.NewFromInt(500)).Equal(decimal.NewFromInt(505)))
	assert.True(t, TotalDue(decimal.NewFromInt(5000)).Equal(decimal.NewFromInt(5250)))
}

func TestQuoteDeposit(t *testing.T) {
	small := QuoteDeposit(decimal.NewFromInt(500))
	assert.Equal(t, DepositTypeFixed, small.DepositType)
	assert.True(t, small.TotalDue.Equal(decimal.NewFromInt(505)))

	large := QuoteDeposit(decimal.NewFromInt(5000))
	assert.Equal(t, DepositTypePercentage, large.DepositType)
	assert.True(t, large.SecurityDeposit.Equal(decimal.NewFromInt(250)))
	assert.True(t, large.TotalDue.Equal(decimal.NewFromInt(5250)))
}
