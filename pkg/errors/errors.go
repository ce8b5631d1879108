package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation                 = errors.New("validation failed")
	ErrFundingTargetExceeded      = fmt.Errorf("pledge exceeds project funding target: %w", ErrValidation)
	ErrInvestmentNotFound         = errors.New("investment not found")
	ErrProjectNotFound            = errors.New("project not found")
	ErrNotificationNotFound       = errors.New("notification not found")
	ErrInvalidStateTransition     = errors.New("invalid investment state transition")
	ErrAlreadyEliminated          = fmt.Errorf("investment already eliminated: %w", ErrInvalidStateTransition)
	ErrPaymentDeadlinePassed      = errors.New("payment deadline has passed")
	ErrPaymentAmountMismatch      = errors.New("payment amount must match total due exactly")
	ErrPaymentDeclined            = errors.New("payment declined")
	ErrJobAlreadyRunning          = errors.New("elimination job already running")
	ErrStoreUnavailable           = errors.New("store unavailable")
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation                 = "VALIDATION_ERROR"
	ErrCodeFundingTargetExceeded      = "FUNDING_TARGET_EXCEEDED"
	ErrCodeInvestmentNotFound         = "INVESTMENT_NOT_FOUND"
	ErrCodeProjectNotFound            = "PROJECT_NOT_FOUND"
	ErrCodeNotificationNotFound       = "NOTIFICATION_NOT_FOUND"
	ErrCodeInvalidStateTransition     = "INVALID_STATE_TRANSITION"
	ErrCodeAlreadyEliminated          = "ALREADY_ELIMINATED"
	ErrCodePaymentDeadlinePassed      = "PAYMENT_DEADLINE_PASSED"
	ErrCodePaymentAmountMismatch      = "PAYMENT_AMOUNT_MISMATCH"
	ErrCodePaymentDeclined            = "PAYMENT_DECLINED"
	ErrCodeJobAlreadyRunning          = "JOB_ALREADY_RUNNING"
	ErrCodeStoreUnavailable           = "STORE_UNAVAILABLE"
	ErrCodeNotificationDeliveryFailed = "NOTIFICATION_DELIVERY_FAILED"
)

// CodeOf returns the business code carried by err, or "" if err is not a BusinessError.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func WrapValidation(message string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, ErrValidation)
}

func WrapFundingTargetExceeded(projectID, remaining string) *BusinessError {
	return NewBusinessError(
		ErrCodeFundingTargetExceeded,
		fmt.Sprintf("Project %s can accept at most %s more", projectID, remaining),
		ErrFundingTargetExceeded,
	)
}

func WrapInvestmentNotFound(investmentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvestmentNotFound,
		fmt.Sprintf("Investment with ID %s not found", investmentID),
		ErrInvestmentNotFound,
	)
}

func WrapProjectNotFound(projectID string) *BusinessError {
	return NewBusinessError(
		ErrCodeProjectNotFound,
		fmt.Sprintf("Project with ID %s not found", projectID),
		ErrProjectNotFound,
	)
}

func WrapNotificationNotFound(notificationID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotificationNotFound,
		fmt.Sprintf("Notification with ID %s not found", notificationID),
		ErrNotificationNotFound,
	)
}

func WrapInvalidStateTransition(investmentID, from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStateTransition,
		fmt.Sprintf("Investment %s cannot move from %s to %s", investmentID, from, to),
		ErrInvalidStateTransition,
	)
}

func WrapAlreadyEliminated(investmentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyEliminated,
		fmt.Sprintf("Investment %s was eliminated for non-payment", investmentID),
		ErrAlreadyEliminated,
	)
}

func WrapPaymentDeadlinePassed(investmentID, due string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentDeadlinePassed,
		fmt.Sprintf("Payment for investment %s was due at %s", investmentID, due),
		ErrPaymentDeadlinePassed,
	)
}

func WrapPaymentAmountMismatch(expected, actual string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentAmountMismatch,
		fmt.Sprintf("Payment amount %s does not match total due %s", actual, expected),
		ErrPaymentAmountMismatch,
	)
}

func WrapPaymentDeclined(reason string, err error) *BusinessError {
	if err == nil {
		err = ErrPaymentDeclined
	} else {
		err = fmt.Errorf("%w: %w", ErrPaymentDeclined, err)
	}
	return NewBusinessError(ErrCodePaymentDeclined, reason, err)
}

func WrapJobAlreadyRunning() *BusinessError {
	return NewBusinessError(
		ErrCodeJobAlreadyRunning,
		"another elimination scan holds the lease",
		ErrJobAlreadyRunning,
	)
}

func WrapStoreUnavailable(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeStoreUnavailable,
		"store operation failed",
		fmt.Errorf("%w: %w", ErrStoreUnavailable, err),
	)
}

func WrapNotificationDeliveryFailed(userID string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeNotificationDeliveryFailed,
		fmt.Sprintf("could not notify user %s", userID),
		fmt.Errorf("%w: %w", ErrNotificationDeliveryFailed, err),
	)
}
