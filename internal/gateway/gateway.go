package gateway

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/investment-engine/pkg/errors"
)

// Supported payment methods.
const (
	MethodPaymob   = "paymob"
	MethodInstapay = "instapay"
	MethodFawry    = "fawry"
	MethodWallet   = "wallet"
)

// ChargeRequest asks a gateway to collect Amount from the investor.
type ChargeRequest struct {
	InvestmentID uuid.UUID
	UserID       string
	Method       string
	Amount       decimal.Decimal
	Details      map[string]string
}

// Receipt is the proof of a successful charge.
type Receipt struct {
	TransactionID string
	Method        string
	Amount        decimal.Decimal
	ProcessedAt   time.Time
}

// DeclineError is returned when the gateway refuses the charge.
type DeclineError struct {
	Reason string
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

// Gateway charges an investor. Declines are reported as *DeclineError; any
// other error means the outcome is unknown.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Receipt, error)
}

var (
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	expiryPattern     = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3,4}$`)
	phonePattern      = regexp.MustCompile(`^\d{11}$`)
)

const minFawryReferenceLength = 8

// ValidateDetails checks the method-specific fields of a payment request.
func ValidateDetails(method string, details map[string]string) error {
	get := func(key string) string {
		return strings.ReplaceAll(strings.TrimSpace(details[key]), " ", "")
	}

	switch method {
	case MethodPaymob:
		if !cardNumberPattern.MatchString(get("card_number")) {
			return customError.WrapValidation("card_number must be 16 digits")
		}
		if !expiryPattern.MatchString(get("expiry")) {
			return customError.WrapValidation("expiry must be in MM/YY format")
		}
		if !cvvPattern.MatchString(get("cvv")) {
			return customError.WrapValidation("cvv must be 3 or 4 digits")
		}
	case MethodInstapay:
		if !phonePattern.MatchString(get("phone")) {
			return customError.WrapValidation("phone must be 11 digits")
		}
	case MethodFawry:
		if len(get("reference")) < minFawryReferenceLength {
			return customError.WrapValidation(fmt.Sprintf("reference must be at least %d characters", minFawryReferenceLength))
		}
	case MethodWallet:
	default:
		return customError.WrapValidation(fmt.Sprintf("unsupported payment method %q", method))
	}
	return nil
}

// Offline settles every well-formed charge locally without contacting a
// provider. Card numbers listed in DeclinedCards are refused.
type Offline struct {
	DeclinedCards map[string]struct{}
	Now           func() time.Time
}

// NewOffline returns an offline gateway using the wall clock.
func NewOffline() *Offline {
	return &Offline{Now: time.Now}
}

func (g *Offline) Charge(ctx context.Context, req ChargeRequest) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateDetails(req.Method, req.Details); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, &DeclineError{Reason: "amount must be positive"}
	}
	if req.Method == MethodPaymob {
		card := strings.ReplaceAll(req.Details["card_number"], " ", "")
		if _, declined := g.DeclinedCards[card]; declined {
			return nil, &DeclineError{Reason: "card declined by issuer"}
		}
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	return &Receipt{
		TransactionID: "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16]),
		Method:        req.Method,
		Amount:        req.Amount,
		ProcessedAt:   now(),
	}, nil
}
