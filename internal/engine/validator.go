package engine

import (
	"time"

	"github.com/danaru/lending-engine/internal/domain"
	customError "github.com/danaru/lending-engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountTolerance is the rounding allowance when comparing a submitted
// payment to an expected installment amount: one currency unit.
var AmountTolerance = decimal.NewFromInt(1)

// earlyWindowDays is how many days before an installment's due date a
// payment for it is accepted.
const earlyWindowDays = 7

// ValidatePayment checks a proposed payment against the loan's schedule,
// cursor and payment history. On success it returns a new pending Payment
// applied against the loan's current installment; otherwise it returns a
// typed rejection.
//
// Late submissions are never rejected here: a payment past the due date
// plus grace period simply settles an overdue installment. Lateness is a
// classification outcome, not a rejection reason.
func ValidatePayment(loan *domain.Loan, schedule *domain.Schedule, history []*domain.Payment, amount decimal.Decimal, submittedAt time.Time) (*domain.Payment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapInvalidAmount(amount.String())
	}

	if !loan.AllowPartialPayment {
		for _, p := range history {
			if p.Status == domain.PaymentStatusPending {
				return nil, customError.WrapDuplicatePendingPayment(loan.LoanID)
			}
		}
	}

	figures := ComputeOutstanding(loan, schedule, history, submittedAt)
	if amount.GreaterThan(figures.OutstandingTotal) {
		return nil, customError.WrapExceedsBalance(amount.String(), figures.OutstandingTotal.String())
	}

	entry := schedule.EntryAt(loan.CurrentInstallment)

	if !loan.AllowPartialPayment {
		if entry == nil {
			return nil, customError.WrapNoInstallmentsRemaining(loan.LoanID)
		}
		// Exact-amount loans must pay the cursor entry's total. The final
		// entry can differ from the uniform amount by rounding residue,
		// which is why the comparison targets the entry, with tolerance.
		if loan.RepaymentType == domain.RepayEqualInstallment {
			if amount.Sub(entry.Total).Abs().GreaterThan(AmountTolerance) {
				return nil, customError.WrapAmountMismatch(entry.Total.String(), amount.String())
			}
		}
	}

	if entry != nil {
		earliest := entry.DueDate.AddDate(0, 0, -earlyWindowDays)
		if submittedAt.Before(earliest) {
			return nil, customError.WrapTooEarly(entry.DueDate.Format("2006-01-02"))
		}
	}

	return &domain.Payment{
		ID:                uuid.New(),
		LoanID:            loan.LoanID,
		InstallmentNumber: loan.CurrentInstallment,
		Amount:            amount,
		Status:            domain.PaymentStatusPending,
		CreatedAt:         submittedAt,
	}, nil
}
