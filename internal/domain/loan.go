package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusPending   = "pending"
	LoanStatusAccepted  = "accepted"
	LoanStatusDeclined  = "declined"
	LoanStatusCancelled = "cancelled"
	LoanStatusCompleted = "completed"
)

// Interest types
const (
	InterestFixed    = "fixed"
	InterestReducing = "reducing"
)

// Repayment types
const (
	RepayEqualInstallment = "equal_installment"
	RepayInterestOnly     = "interest_only"
	RepayFullAtEnd        = "full_at_end"
)

// Tenure units
const (
	TenureMonths = "months"
	TenureYears  = "years"
)

// Repayment frequencies
const (
	FreqWeekly     = "weekly"
	FreqBiWeekly   = "bi_weekly"
	FreqMonthly    = "monthly"
	FreqQuarterly  = "quarterly"
	FreqSemiAnnual = "semi_annual"
	FreqYearly     = "yearly"
)

// LoanTerms are the agreed conditions of a loan. They are frozen once the
// offer is accepted.
type LoanTerms struct {
	Principal           decimal.Decimal `json:"principal" db:"principal"`
	AnnualInterestRate  decimal.Decimal `json:"annual_interest_rate" db:"annual_interest_rate"`
	InterestType        string          `json:"interest_type" db:"interest_type"`
	TenureValue         int             `json:"tenure_value" db:"tenure_value"`
	TenureUnit          string          `json:"tenure_unit" db:"tenure_unit"`
	RepaymentType       string          `json:"repayment_type" db:"repayment_type"`
	RepaymentFrequency  string          `json:"repayment_frequency" db:"repayment_frequency"`
	StartDate           time.Time       `json:"start_date" db:"start_date"`
	GracePeriodDays     int             `json:"grace_period_days" db:"grace_period_days"`
	AllowPartialPayment bool            `json:"allow_partial_payment" db:"allow_partial_payment"`
}

// Loan is an accepted (or still pending) offer between a lender and a
// borrower. CurrentInstallment is the single source of truth for which
// installment is next due; it starts at 1 and only ever moves forward, one
// step at a time, on payment approval.
type Loan struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	LoanID             string    `json:"loan_id" db:"loan_id"`
	LenderID           string    `json:"lender_id" db:"lender_id"`
	BorrowerID         string    `json:"borrower_id" db:"borrower_id"`
	LoanTerms
	CurrentInstallment int       `json:"current_installment" db:"current_installment"`
	Status             string    `json:"status" db:"status"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// AdvanceCursor moves the installment cursor past justApproved. It is a
// no-op unless the cursor currently sits exactly on justApproved, which
// makes approval-driven advancement idempotent under retries.
func (l *Loan) AdvanceCursor(justApproved int) bool {
	if l.CurrentInstallment != justApproved {
		return false
	}
	l.CurrentInstallment = justApproved + 1
	return true
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	LoanID              string          `json:"loan_id" validate:"required"`
	LenderID            string          `json:"lender_id" validate:"required"`
	BorrowerID          string          `json:"borrower_id" validate:"required"`
	Principal           decimal.Decimal `json:"principal" validate:"required"`
	AnnualInterestRate  decimal.Decimal `json:"annual_interest_rate"`
	InterestType        string          `json:"interest_type" validate:"required,oneof=fixed reducing"`
	TenureValue         int             `json:"tenure_value" validate:"required,gt=0"`
	TenureUnit          string          `json:"tenure_unit" validate:"required,oneof=months years"`
	RepaymentType       string          `json:"repayment_type" validate:"required,oneof=equal_installment interest_only full_at_end"`
	RepaymentFrequency  string          `json:"repayment_frequency" validate:"required,oneof=weekly bi_weekly monthly quarterly semi_annual yearly"`
	StartDate           interface{}     `json:"start_date"`
	GracePeriodDays     int             `json:"grace_period_days" validate:"gte=0"`
	AllowPartialPayment bool            `json:"allow_partial_payment"`
}

type CreateLoanResponse struct {
	Loan     *Loan     `json:"loan"`
	Schedule *Schedule `json:"schedule"`
}

type OutstandingResponse struct {
	LoanID               string          `json:"loan_id"`
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal"`
	OutstandingTotal     decimal.Decimal `json:"outstanding_total"`
	DueAmount            decimal.Decimal `json:"due_amount"`
	OverdueAmount        decimal.Decimal `json:"overdue_amount"`
}
