package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound            = errors.New("loan not found")
	ErrLoanAlreadyExists       = errors.New("loan already exists")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrLoanNotAccepted         = errors.New("loan is not in accepted state")
	ErrInvalidTerms            = errors.New("invalid loan terms")
	ErrInvalidAmount           = errors.New("payment amount must be positive")
	ErrDuplicatePendingPayment = errors.New("a pending payment already exists for this loan")
	ErrExceedsBalance          = errors.New("payment amount exceeds outstanding balance")
	ErrAmountMismatch          = errors.New("payment amount must match the installment amount")
	ErrNoInstallmentsRemaining = errors.New("no installments remaining on this loan")
	ErrTooEarly                = errors.New("payment submitted too early for the next installment")
	ErrInvalidTransition       = errors.New("payment is not in a transitionable state")
	ErrNotAuthorized           = errors.New("party is not authorized for this action")
)

// Error codes
const (
	CodeLoanNotFound            = "LOAN_NOT_FOUND"
	CodeLoanAlreadyExists       = "LOAN_ALREADY_EXISTS"
	CodePaymentNotFound         = "PAYMENT_NOT_FOUND"
	CodeLoanNotAccepted         = "LOAN_NOT_ACCEPTED"
	CodeInvalidTerms            = "INVALID_TERMS"
	CodeInvalidAmount           = "INVALID_AMOUNT"
	CodeDuplicatePendingPayment = "DUPLICATE_PENDING_PAYMENT"
	CodeExceedsBalance          = "EXCEEDS_BALANCE"
	CodeAmountMismatch          = "AMOUNT_MISMATCH"
	CodeNoInstallmentsRemaining = "NO_INSTALLMENTS_REMAINING"
	CodeTooEarly                = "TOO_EARLY"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeNotAuthorized           = "NOT_AUTHORIZED"
	CodeDatabaseError           = "DATABASE_ERROR"
	CodeCacheError              = "CACHE_ERROR"
)

// BusinessError carries a stable code alongside a human-readable message so
// handlers can map engine rejections onto HTTP statuses without string
// matching.
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

// CodeOf returns the business code of err, or empty when err carries none.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Wrap common errors with business context

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		CodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyExists(loanID string) *BusinessError {
	return NewBusinessError(
		CodeLoanAlreadyExists,
		fmt.Sprintf("Loan with ID %s already exists", loanID),
		ErrLoanAlreadyExists,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		CodePaymentNotFound,
		fmt.Sprintf("Payment with ID %s not found", paymentID),
		ErrPaymentNotFound,
	)
}

func WrapLoanNotAccepted(loanID, status string) *BusinessError {
	return NewBusinessError(
		CodeLoanNotAccepted,
		fmt.Sprintf("Loan %s is %s; repayment requires an accepted loan", loanID, status),
		ErrLoanNotAccepted,
	)
}

func WrapInvalidTerms(detail string) *BusinessError {
	return NewBusinessError(CodeInvalidTerms, detail, ErrInvalidTerms)
}

func WrapInvalidAmount(amount string) *BusinessError {
	return NewBusinessError(
		CodeInvalidAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidAmount,
	)
}

func WrapDuplicatePendingPayment(loanID string) *BusinessError {
	return NewBusinessError(
		CodeDuplicatePendingPayment,
		fmt.Sprintf("Loan %s already has a payment awaiting lender review", loanID),
		ErrDuplicatePendingPayment,
	)
}

func WrapExceedsBalance(amount, outstanding string) *BusinessError {
	return NewBusinessError(
		CodeExceedsBalance,
		fmt.Sprintf("Payment %s exceeds outstanding balance %s", amount, outstanding),
		ErrExceedsBalance,
	)
}

func WrapAmountMismatch(expected, actual string) *BusinessError {
	return NewBusinessError(
		CodeAmountMismatch,
		fmt.Sprintf("Payment amount %s does not match expected installment %s", actual, expected),
		ErrAmountMismatch,
	)
}

func WrapNoInstallmentsRemaining(loanID string) *BusinessError {
	return NewBusinessError(
		CodeNoInstallmentsRemaining,
		fmt.Sprintf("Loan %s has no installments remaining", loanID),
		ErrNoInstallmentsRemaining,
	)
}

func WrapTooEarly(dueDate string) *BusinessError {
	return NewBusinessError(
		CodeTooEarly,
		fmt.Sprintf("Installment is due %s; payments open seven days before the due date", dueDate),
		ErrTooEarly,
	)
}

func WrapInvalidTransition(from, to string) *BusinessError {
	return NewBusinessError(
		CodeInvalidTransition,
		fmt.Sprintf("Cannot transition payment from %s to %s", from, to),
		ErrInvalidTransition,
	)
}

func WrapNotAuthorized(action string) *BusinessError {
	return NewBusinessError(
		CodeNotAuthorized,
		fmt.Sprintf("Caller may not %s on this loan", action),
		ErrNotAuthorized,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(CodeDatabaseError, "database operation failed", err)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(CodeCacheError, "cache operation failed", err)
}
