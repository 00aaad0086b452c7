package repository

import (
	"context"
	"time"

	"github.com/danaru/lending-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (
			id, loan_id, lender_id, borrower_id,
			principal, annual_interest_rate, interest_type,
			tenure_value, tenure_unit, repayment_type, repayment_frequency,
			start_date, grace_period_days, allow_partial_payment,
			current_installment, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.LoanID,
		loan.LenderID,
		loan.BorrowerID,
		loan.Principal,
		loan.AnnualInterestRate,
		loan.InterestType,
		loan.TenureValue,
		loan.TenureUnit,
		loan.RepaymentType,
		loan.RepaymentFrequency,
		loan.StartDate,
		loan.GracePeriodDays,
		loan.AllowPartialPayment,
		loan.CurrentInstallment,
		loan.Status,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `
		SELECT id, loan_id, lender_id, borrower_id,
		       principal, annual_interest_rate, interest_type,
		       tenure_value, tenure_unit, repayment_type, repayment_frequency,
		       start_date, grace_period_days, allow_partial_payment,
		       current_installment, status, created_at, updated_at
		FROM loans
		WHERE loan_id = $1
	`

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, loanID)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, loanID string, status string) error {
	query := `
		UPDATE loans
		SET status = $2, updated_at = $3
		WHERE loan_id = $1
	`

	_, err := r.db.ExecContext(ctx, query, loanID, status, time.Now())
	return err
}

func (r *loanRepository) ListByStatus(ctx context.Context, status string) ([]*domain.Loan, error) {
	query := `
		SELECT id, loan_id, lender_id, borrower_id,
		       principal, annual_interest_rate, interest_type,
		       tenure_value, tenure_unit, repayment_type, repayment_frequency,
		       start_date, grace_period_days, allow_partial_payment,
		       current_installment, status, created_at, updated_at
		FROM loans
		WHERE status = $1
		ORDER BY created_at
	`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query, status)
	if err != nil {
		return nil, err
	}

	return loans, nil
}
