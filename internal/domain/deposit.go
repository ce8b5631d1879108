package domain

import "github.com/shopspring/decimal"

// Security deposit policy.
//
// Pledges up to DepositThreshold pay a flat DepositFlatFee; larger pledges pay
// DepositRate of the amount. The rate is applied without a cap: the largest
// valid pledge (MaxInvestmentAmount) yields 50,000, so a 50,000 cap would
// never bind.
var (
	DepositFlatFee   = decimal.NewFromInt(5)
	DepositThreshold = decimal.NewFromInt(1000)
	DepositRate      = decimal.RequireFromString("0.05")
)

const (
	DepositTypeFixed      = "fixed"
	DepositTypePercentage = "percentage"
)

// SecurityDeposit returns the non-refundable deposit charged on top of amount.
func SecurityDeposit(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThanOrEqual(DepositThreshold) {
		return DepositFlatFee
	}
	return amount.Mul(DepositRate)
}

// TotalDue is the pledge plus its security deposit.
func TotalDue(amount decimal.Decimal) decimal.Decimal {
	return amount.Add(SecurityDeposit(amount))
}

// DepositQuote is what the investor sees before pledging.
type DepositQuote struct {
	Amount          decimal.Decimal `json:"amount"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`
	TotalDue        decimal.Decimal `json:"total_due"`
	DepositType     string          `json:"deposit_type"`
}

// QuoteDeposit builds a DepositQuote for amount.
func QuoteDeposit(amount decimal.Decimal) DepositQuote {
	depositType := DepositTypePercentage
	if amount.LessThanOrEqual(DepositThreshold) {
		depositType = DepositTypeFixed
	}
	return DepositQuote{
		Amount:          amount,
		SecurityDeposit: SecurityDeposit(amount),
		TotalDue:        TotalDue(amount),
		DepositType:     depositType,
	}
}
