package repository

import (
	"context"
	"time"

	"github.com/danaru/lending-engine/internal/domain"
	customError "github.com/danaru/lending-engine/pkg/errors"
	"github.com/google/uuid"

	"github.com/jmoiron/sqlx"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreatePending(ctx context.Context, payment *domain.Payment, allowPartial bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if !allowPartial {
		// Lock the loan row so two concurrent submissions serialize here
		// instead of both observing zero pending payments.
		var lockedID string
		lockQuery := `SELECT loan_id FROM loans WHERE loan_id = $1 FOR UPDATE`
		if err = tx.GetContext(ctx, &lockedID, lockQuery, payment.LoanID); err != nil {
			return err
		}

		var pendingCount int
		countQuery := `SELECT COUNT(*) FROM payments WHERE loan_id = $1 AND status = $2`
		if err = tx.GetContext(ctx, &pendingCount, countQuery, payment.LoanID, domain.PaymentStatusPending); err != nil {
			return err
		}
		if pendingCount > 0 {
			return customError.WrapDuplicatePendingPayment(payment.LoanID)
		}
	}

	insertQuery := `
		INSERT INTO payments (id, loan_id, installment_number, amount, mode, reference, status, reject_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, insertQuery,
		payment.ID,
		payment.LoanID,
		payment.InstallmentNumber,
		payment.Amount,
		payment.Mode,
		payment.Reference,
		payment.Status,
		payment.RejectReason,
		payment.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT id, loan_id, installment_number, amount, mode, reference, status, reject_reason, created_at, paid_at
		FROM payments
		WHERE id = $1
	`

	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, query, id)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	query := `
		SELECT id, loan_id, installment_number, amount, mode, reference, status, reject_reason, created_at, paid_at
		FROM payments
		WHERE loan_id = $1
		ORDER BY created_at
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query, loanID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) Approve(ctx context.Context, paymentID uuid.UUID, loanID string, installmentNumber int, paidAt time.Time, closeLoan bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	payQuery := `
		UPDATE payments
		SET status = $2, paid_at = $3
		WHERE id = $1 AND status = $4
	`
	res, err := tx.ExecContext(ctx, payQuery, paymentID, domain.PaymentStatusPaid, paidAt, domain.PaymentStatusPending)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return customError.WrapInvalidTransition("non-pending", domain.PaymentStatusPaid)
	}

	// Compare-and-swap cursor advance: only moves when the cursor still
	// sits on the installment just approved. Zero rows means the cursor
	// already moved past it, which happens when several partial payments
	// carry the same installment number; the advance is then a no-op and
	// the payment status write still commits. A concurrent approval of the
	// same payment is caught above by the status guard, not here.
	cursorQuery := `
		UPDATE loans
		SET current_installment = current_installment + 1, updated_at = $3
		WHERE loan_id = $1 AND current_installment = $2
	`
	if _, err = tx.ExecContext(ctx, cursorQuery, loanID, installmentNumber, paidAt); err != nil {
		return err
	}

	if closeLoan {
		closeQuery := `UPDATE loans SET status = $2, updated_at = $3 WHERE loan_id = $1`
		if _, err = tx.ExecContext(ctx, closeQuery, loanID, domain.LoanStatusCompleted, paidAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *paymentRepository) Reject(ctx context.Context, paymentID uuid.UUID, reason string) error {
	query := `
		UPDATE payments
		SET status = $2, reject_reason = $3
		WHERE id = $1 AND status = $4
	`

	res, err := r.db.ExecContext(ctx, query, paymentID, domain.PaymentStatusRejected, reason, domain.PaymentStatusPending)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return customError.WrapInvalidTransition("non-pending", domain.PaymentStatusRejected)
	}

	return nil
}

func (r *paymentRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	// Only pending rows are touched, so re-running the sweep is harmless.
	query := `
		UPDATE payments
		SET status = $1
		WHERE status = $2 AND created_at < $3
	`

	res, err := r.db.ExecContext(ctx, query, domain.PaymentStatusExpired, domain.PaymentStatusPending, cutoff)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
