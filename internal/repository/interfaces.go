package repository

import (
	"context"
	"time"

	"github.com/danaru/lending-engine/internal/domain"
	"github.com/google/uuid"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan offer
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByLoanID retrieves a loan by its loan ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// UpdateStatus moves a loan to a new lifecycle status
	UpdateStatus(ctx context.Context, loanID string, status string) error

	// ListByStatus retrieves all loans in the given lifecycle status
	ListByStatus(ctx context.Context, status string) ([]*domain.Loan, error)
}

// PaymentRepository defines the interface for payment data operations.
// State-changing methods are transactional: CreatePending enforces the
// at-most-one-pending rule inside one transaction, and Approve couples the
// status write with the loan cursor advance so neither lands without the
// other.
type PaymentRepository interface {
	// CreatePending inserts a new pending payment. When allowPartial is
	// false it verifies, inside the same transaction, that no other
	// pending payment exists for the loan; a concurrent duplicate is
	// surfaced as ErrDuplicatePendingPayment at commit.
	CreatePending(ctx context.Context, payment *domain.Payment, allowPartial bool) error

	// GetByID retrieves a single payment
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByLoanID retrieves all payments for a loan, oldest first
	GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error)

	// Approve marks a pending payment paid and advances the loan cursor
	// past installmentNumber with a compare-and-swap, atomically. The
	// advance is a no-op when the cursor already moved past that
	// installment, so approving several partial payments against the same
	// installment is safe. When closeLoan is set the loan is also marked
	// completed in the same transaction.
	Approve(ctx context.Context, paymentID uuid.UUID, loanID string, installmentNumber int, paidAt time.Time, closeLoan bool) error

	// Reject marks a pending payment rejected with an optional reason
	Reject(ctx context.Context, paymentID uuid.UUID, reason string) error

	// ExpireOlderThan moves every payment still pending and created
	// before cutoff to expired, returning how many rows changed
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
