package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/danaru/lending-engine/internal/auth"
	"github.com/danaru/lending-engine/internal/config"
	"github.com/danaru/lending-engine/internal/domain"
	"github.com/danaru/lending-engine/internal/service"
	customError "github.com/danaru/lending-engine/pkg/errors"
	"github.com/danaru/lending-engine/tests/mocks"
)

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			PendingPaymentTTL:   24 * time.Hour,
			ReminderLeadDays:    3,
			OutstandingCacheTTL: time.Minute,
		},
	}
}

func newService(loanRepo *mocks.MockLoanRepository, paymentRepo *mocks.MockPaymentRepository) *service.BillingService {
	return service.NewBillingService(loanRepo, paymentRepo, nil, nil, testConfig())
}

func testLoan() *domain.Loan {
	return &domain.Loan{
		ID:         uuid.New(),
		LoanID:     "LN-1001",
		LenderID:   "lender-1",
		BorrowerID: "borrower-1",
		LoanTerms: domain.LoanTerms{
			Principal:          decimal.NewFromInt(100000),
			AnnualInterestRate: decimal.NewFromInt(12),
			InterestType:       domain.InterestReducing,
			TenureValue:        12,
			TenureUnit:         domain.TenureMonths,
			RepaymentType:      domain.RepayEqualInstallment,
			RepaymentFrequency: domain.FreqMonthly,
			StartDate:          time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		CurrentInstallment: 1,
		Status:             domain.LoanStatusAccepted,
	}
}

var (
	borrower = &auth.Party{ID: "borrower-1", Role: auth.RoleBorrower}
	lender   = &auth.Party{ID: "lender-1", Role: auth.RoleLender}
)

func TestCreateLoan(t *testing.T) {
	request := &domain.CreateLoanRequest{
		LoanID:             "LN-2001",
		LenderID:           "lender-1",
		BorrowerID:         "borrower-1",
		Principal:          decimal.NewFromInt(100000),
		AnnualInterestRate: decimal.NewFromInt(12),
		InterestType:       domain.InterestReducing,
		TenureValue:        12,
		TenureUnit:         domain.TenureMonths,
		RepaymentType:      domain.RepayEqualInstallment,
		RepaymentFrequency: domain.FreqMonthly,
	}
	startDate := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		setupMocks func(*mocks.MockLoanRepository)
		wantErr    error
		validate   func(*testing.T, *domain.Loan, *domain.Schedule)
	}{
		{
			name: "Success - create new offer",
			setupMocks: func(loanRepo *mocks.MockLoanRepository) {
				loanRepo.On("GetByLoanID", mock.Anything, "LN-2001").Return(nil, sql.ErrNoRows)
				loanRepo.On("Create", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
					return loan.LoanID == "LN-2001" && loan.Status == domain.LoanStatusPending && loan.CurrentInstallment == 1
				})).Return(nil)
			},
			validate: func(t *testing.T, loan *domain.Loan, schedule *domain.Schedule) {
				assert.Equal(t, domain.LoanStatusPending, loan.Status)
				assert.Equal(t, 12, schedule.InstallmentCount)
				require.NotNil(t, schedule.InstallmentAmount)
				assert.True(t, schedule.InstallmentAmount.Equal(decimal.NewFromFloat(8884.88)))
			},
		},
		{
			name: "Failure - loan already exists",
			setupMocks: func(loanRepo *mocks.MockLoanRepository) {
				loanRepo.On("GetByLoanID", mock.Anything, "LN-2001").Return(&domain.Loan{LoanID: "LN-2001"}, nil)
			},
			wantErr: customError.ErrLoanAlreadyExists,
		},
		{
			name: "Failure - database error on lookup",
			setupMocks: func(loanRepo *mocks.MockLoanRepository) {
				loanRepo.On("GetByLoanID", mock.Anything, "LN-2001").Return(nil, errors.New("connection refused"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loanRepo := new(mocks.MockLoanRepository)
			paymentRepo := new(mocks.MockPaymentRepository)
			tt.setupMocks(loanRepo)

			svc := newService(loanRepo, paymentRepo)
			loan, schedule, err := svc.CreateLoan(context.Background(), request, startDate)

			if tt.validate != nil {
				require.NoError(t, err)
				tt.validate(t, loan, schedule)
			} else {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			}
			loanRepo.AssertExpectations(t)
		})
	}
}

func TestCreateLoanRejectsBadTerms(t *testing.T) {
	loanRepo := new(mocks.MockLoanRepository)
	loanRepo.On("GetByLoanID", mock.Anything, "LN-BAD").Return(nil, sql.ErrNoRows)

	svc := newService(loanRepo, new(mocks.MockPaymentRepository))
	_, _, err := svc.CreateLoan(context.Background(), &domain.CreateLoanRequest{
		LoanID:             "LN-BAD",
		LenderID:           "lender-1",
		BorrowerID:         "borrower-1",
		Principal:          decimal.NewFromInt(-10),
		InterestType:       domain.InterestFixed,
		TenureValue:        12,
		TenureUnit:         domain.TenureMonths,
		RepaymentType:      domain.RepayEqualInstallment,
		RepaymentFrequency: domain.FreqMonthly,
	}, time.Now())

	assert.ErrorIs(t, err, customError.ErrInvalidTerms)
	loanRepo.AssertNotCalled(t, "Create")
}

func TestAcceptLoan(t *testing.T) {
	t.Run("pending offer becomes accepted", func(t *testing.T) {
		loan := testLoan()
		loan.Status = domain.LoanStatusPending

		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		loanRepo.On("UpdateStatus", mock.Anything, loan.LoanID, domain.LoanStatusAccepted).Return(nil)

		svc := newService(loanRepo, new(mocks.MockPaymentRepository))
		accepted, err := svc.AcceptLoan(context.Background(), loan.LoanID)

		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusAccepted, accepted.Status)
	})

	t.Run("accepted loan cannot be accepted again", func(t *testing.T) {
		loan := testLoan()

		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)

		svc := newService(loanRepo, new(mocks.MockPaymentRepository))
		_, err := svc.AcceptLoan(context.Background(), loan.LoanID)

		assert.ErrorIs(t, err, customError.ErrInvalidTransition)
		loanRepo.AssertNotCalled(t, "UpdateStatus")
	})
}

func TestSubmitPayment(t *testing.T) {
	amount := decimal.NewFromFloat(8884.88)
	submittedAt := time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)

	t.Run("success creates pending payment", func(t *testing.T) {
		loan := testLoan()
		loanRepo := new(mocks.MockLoanRepository)
		paymentRepo := new(mocks.MockPaymentRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		paymentRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return([]*domain.Payment{}, nil)
		paymentRepo.On("CreatePending", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
			return p.LoanID == loan.LoanID && p.InstallmentNumber == 1 && p.Status == domain.PaymentStatusPending
		}), false).Return(nil)

		svc := newService(loanRepo, paymentRepo)
		payment, err := svc.SubmitPayment(context.Background(), loan.LoanID, borrower, amount, "bank_transfer", "TRX-1", submittedAt)

		require.NoError(t, err)
		assert.Equal(t, "bank_transfer", payment.Mode)
		assert.Equal(t, "TRX-1", payment.Reference)
		paymentRepo.AssertNumberOfCalls(t, "CreatePending", 1)
	})

	t.Run("duplicate pending surfaces without retry", func(t *testing.T) {
		loan := testLoan()
		loanRepo := new(mocks.MockLoanRepository)
		paymentRepo := new(mocks.MockPaymentRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		paymentRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return([]*domain.Payment{}, nil)
		paymentRepo.On("CreatePending", mock.Anything, mock.Anything, false).
			Return(customError.WrapDuplicatePendingPayment(loan.LoanID))

		svc := newService(loanRepo, paymentRepo)
		_, err := svc.SubmitPayment(context.Background(), loan.LoanID, borrower, amount, "cash", "", submittedAt)

		assert.ErrorIs(t, err, customError.ErrDuplicatePendingPayment)
		paymentRepo.AssertNumberOfCalls(t, "CreatePending", 1)
	})

	t.Run("transient store failure retried once", func(t *testing.T) {
		loan := testLoan()
		loanRepo := new(mocks.MockLoanRepository)
		paymentRepo := new(mocks.MockPaymentRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		paymentRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return([]*domain.Payment{}, nil)
		paymentRepo.On("CreatePending", mock.Anything, mock.Anything, false).
			Return(errors.New("serialization failure")).Once()
		paymentRepo.On("CreatePending", mock.Anything, mock.Anything, false).
			Return(nil).Once()

		svc := newService(loanRepo, paymentRepo)
		_, err := svc.SubmitPayment(context.Background(), loan.LoanID, borrower, amount, "cash", "", submittedAt)

		require.NoError(t, err)
		paymentRepo.AssertNumberOfCalls(t, "CreatePending", 2)
	})

	t.Run("pending history rejected before touching the store", func(t *testing.T) {
		loan := testLoan()
		loanRepo := new(mocks.MockLoanRepository)
		paymentRepo := new(mocks.MockPaymentRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		paymentRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return([]*domain.Payment{
			{Status: domain.PaymentStatusPending, Amount: amount},
		}, nil)

		svc := newService(loanRepo, paymentRepo)
		_, err := svc.SubmitPayment(context.Background(), loan.LoanID, borrower, amount, "cash", "", submittedAt)

		assert.ErrorIs(t, err, customError.ErrDuplicatePendingPayment)
		paymentRepo.AssertNotCalled(t, "CreatePending")
	})

	t.Run("lender may not submit", func(t *testing.T) {
		loan := testLoan()
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)

		svc := newService(loanRepo, new(mocks.MockPaymentRepository))
		_, err := svc.SubmitPayment(context.Background(), loan.LoanID, lender, amount, "cash", "", submittedAt)

		assert.ErrorIs(t, err, customError.ErrNotAuthorized)
	})

	t.Run("pending offer cannot take payments", func(t *testing.T) {
		loan := testLoan()
		loan.Status = domain.LoanStatusPending
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)

		svc := newService(loanRepo, new(mocks.MockPaymentRepository))
		_, err := svc.SubmitPayment(context.Background(), loan.LoanID, borrower, amount, "cash", "", submittedAt)

		assert.ErrorIs(t, err, customError.ErrLoanNotAccepted)
	})
}

func TestApprovePayment(t *testing.T) {
	t.Run("approval marks paid and advances cursor", func(t *testing.T) {
		loan := testLoan()
		payment := &domain.Payment{
			ID:                uuid.New(),
			LoanID:            loan.LoanID,
			InstallmentNumber: 1,
			Amount:            decimal.NewFromFloat(8884.88),
			Status:            domain.PaymentStatusPending,
		}

		loanRepo := new(mocks.MockLoanRepository)
		paymentRepo := new(mocks.MockPaymentRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		paymentRepo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
		paymentRepo.On("Approve", mock.Anything, payment.ID, loan.LoanID, 1, mock.Anything, false).Return(nil)

		svc := newService(loanRepo, paymentRepo)
		paid, advanced, err := svc.ApprovePayment(context.Background(), payment.ID, lender)

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPaid, paid.Status)
		assert.NotNil(t, paid.PaidAt)
		assert.Equal(t, 2, advanced.CurrentInstallment)
		assert.Equal(t, domain.LoanStatusAccepted, advanced.Status)
	})

	t.Run("final installment completes the loan", func(t *testing.T) {
		loan := testLoan()
		loan.CurrentInstallment = 12
		payment := &domain.Payment{
			ID:                uuid.New(),
			LoanID:            loan.LoanID,
			InstallmentNumber: 12,
			Amount:            decimal.NewFromFloat(8884.88),
			Status:            domain.PaymentStatusPending,
		}

		loanRepo := new(mocks.MockLoanRepository)
		paymentRepo := new(mocks.MockPaymentRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		paymentRepo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
		paymentRepo.On("Approve", mock.Anything, payment.ID, loan.LoanID, 12, mock.Anything, true).Return(nil)

		svc := newService(loanRepo, paymentRepo)
		_, advanced, err := svc.ApprovePayment(context.Background(), payment.ID, lender)

		require.NoError(t, err)
		assert.Equal(t, 13, advanced.CurrentInstallment)
		assert.Equal(t, domain.LoanStatusCompleted, advanced.Status)
	})

	t.Run("second partial for an already advanced installment approves cleanly", func(t *testing.T) {
		// Partial-payment loans can hold several pending payments stamped
		// with the same installment number. Approving the first moves the
		// cursor; approving the rest must still land, with the cursor left
		// where it is.
		loan := testLoan()
		loan.AllowPartialPayment = true
		loan.CurrentInstallment = 2
		payment := &domain.Payment{
			ID:                uuid.New(),
			LoanID:            loan.LoanID,
			InstallmentNumber: 1,
			Amount:            decimal.NewFromInt(3000),
			Status:            domain.PaymentStatusPending,
		}

		loanRepo := new(mocks.MockLoanRepository)
		paymentRepo := new(mocks.MockPaymentRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		paymentRepo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
		paymentRepo.On("Approve", mock.Anything, payment.ID, loan.LoanID, 1, mock.Anything, false).Return(nil)

		svc := newService(loanRepo, paymentRepo)
		paid, advanced, err := svc.ApprovePayment(context.Background(), payment.ID, lender)

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPaid, paid.Status)
		assert.Equal(t, 2, advanced.CurrentInstallment)
	})

	t.Run("already paid payment is refused", func(t *testing.T) {
		loan := testLoan()
		payment := &domain.Payment{
			ID:                uuid.New(),
			LoanID:            loan.LoanID,
			InstallmentNumber: 1,
			Status:            domain.PaymentStatusPaid,
		}

		loanRepo := new(mocks.MockLoanRepository)
		paymentRepo := new(mocks.MockPaymentRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		paymentRepo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)

		svc := newService(loanRepo, paymentRepo)
		_, _, err := svc.ApprovePayment(context.Background(), payment.ID, lender)

		assert.ErrorIs(t, err, customError.ErrInvalidTransition)
		paymentRepo.AssertNotCalled(t, "Approve")
	})

	t.Run("borrower may not approve", func(t *testing.T) {
		loan := testLoan()
		payment := &domain.Payment{
			ID:     uuid.New(),
			LoanID: loan.LoanID,
			Status: domain.PaymentStatusPending,
		}

		loanRepo := new(mocks.MockLoanRepository)
		paymentRepo := new(mocks.MockPaymentRepository)
		loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		paymentRepo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)

		svc := newService(loanRepo, paymentRepo)
		_, _, err := svc.ApprovePayment(context.Background(), payment.ID, borrower)

		assert.ErrorIs(t, err, customError.ErrNotAuthorized)
	})
}

func TestRejectPayment(t *testing.T) {
	loan := testLoan()
	payment := &domain.Payment{
		ID:                uuid.New(),
		LoanID:            loan.LoanID,
		InstallmentNumber: 1,
		Amount:            decimal.NewFromFloat(8884.88),
		Status:            domain.PaymentStatusPending,
	}

	loanRepo := new(mocks.MockLoanRepository)
	paymentRepo := new(mocks.MockPaymentRepository)
	loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
	paymentRepo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
	paymentRepo.On("Reject", mock.Anything, payment.ID, "wrong reference").Return(nil)

	svc := newService(loanRepo, paymentRepo)
	rejected, err := svc.RejectPayment(context.Background(), payment.ID, lender, "wrong reference")

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRejected, rejected.Status)
	assert.Equal(t, "wrong reference", rejected.RejectReason)
}

func TestExpirePendingPayments(t *testing.T) {
	loanRepo := new(mocks.MockLoanRepository)
	paymentRepo := new(mocks.MockPaymentRepository)
	paymentRepo.On("ExpireOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return time.Since(cutoff) >= 23*time.Hour
	})).Return(int64(3), nil)

	svc := newService(loanRepo, paymentRepo)
	count, err := svc.ExpirePendingPayments(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestGetOutstanding(t *testing.T) {
	loan := testLoan()
	loanRepo := new(mocks.MockLoanRepository)
	paymentRepo := new(mocks.MockPaymentRepository)
	loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
	paymentRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return([]*domain.Payment{
		{Status: domain.PaymentStatusPaid, Amount: decimal.NewFromFloat(8884.88)},
	}, nil)

	svc := newService(loanRepo, paymentRepo)
	resp, err := svc.GetOutstanding(context.Background(), loan.LoanID)

	require.NoError(t, err)
	assert.True(t, resp.OutstandingTotal.Equal(decimal.NewFromFloat(97733.68)))
	assert.True(t, resp.OutstandingPrincipal.Equal(decimal.NewFromFloat(92115.12)))
}
