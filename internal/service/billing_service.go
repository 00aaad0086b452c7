package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/danaru/lending-engine/internal/auth"
	"github.com/danaru/lending-engine/internal/config"
	"github.com/danaru/lending-engine/internal/domain"
	"github.com/danaru/lending-engine/internal/engine"
	"github.com/danaru/lending-engine/internal/metrics"
	"github.com/danaru/lending-engine/internal/notify"
	"github.com/danaru/lending-engine/internal/repository"
	customError "github.com/danaru/lending-engine/pkg/errors"
)

type BillingService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	redis       *redis.Client
	notifier    notify.Sink
	config      *config.Config
}

func NewBillingService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	redisClient *redis.Client,
	notifier notify.Sink,
	cfg *config.Config,
) *BillingService {
	return &BillingService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		redis:       redisClient,
		notifier:    notifier,
		config:      cfg,
	}
}

// CreateLoan records a new loan offer in pending state. The terms are
// validated by computing their schedule up front, so an offer with terms
// that cannot amortize is never stored.
func (s *BillingService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest, startDate time.Time) (*domain.Loan, *domain.Schedule, error) {
	existing, err := s.LoanRepo.GetByLoanID(ctx, request.LoanID)
	if err == nil && existing != nil {
		return nil, nil, customError.WrapLoanAlreadyExists(request.LoanID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	terms := domain.LoanTerms{
		Principal:           request.Principal,
		AnnualInterestRate:  request.AnnualInterestRate,
		InterestType:        request.InterestType,
		TenureValue:         request.TenureValue,
		TenureUnit:          request.TenureUnit,
		RepaymentType:       request.RepaymentType,
		RepaymentFrequency:  request.RepaymentFrequency,
		StartDate:           startDate,
		GracePeriodDays:     request.GracePeriodDays,
		AllowPartialPayment: request.AllowPartialPayment,
	}

	schedule, err := engine.ComputeSchedule(terms)
	if err != nil {
		return nil, nil, err
	}
	metrics.SchedulesComputed.Inc()

	now := time.Now()
	loan := &domain.Loan{
		ID:                 uuid.New(),
		LoanID:             request.LoanID,
		LenderID:           request.LenderID,
		BorrowerID:         request.BorrowerID,
		LoanTerms:          terms,
		CurrentInstallment: 1,
		Status:             domain.LoanStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err = s.LoanRepo.Create(ctx, loan); err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	return loan, schedule, nil
}

// AcceptLoan moves a pending offer to accepted. From here the terms are
// frozen and repayment begins at installment 1.
func (s *BillingService) AcceptLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.transitionOffer(ctx, loanID, domain.LoanStatusAccepted)
	if err != nil {
		return nil, err
	}
	notify.Dispatch(s.notifier, notify.Event{
		Type:    notify.EventLoanAccepted,
		LoanID:  loan.LoanID,
		PartyID: loan.LenderID,
		Message: fmt.Sprintf("Loan %s accepted by borrower", loan.LoanID),
	})
	return loan, nil
}

// DeclineLoan moves a pending offer to declined.
func (s *BillingService) DeclineLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	return s.transitionOffer(ctx, loanID, domain.LoanStatusDeclined)
}

// CancelLoan moves a pending offer to cancelled.
func (s *BillingService) CancelLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	return s.transitionOffer(ctx, loanID, domain.LoanStatusCancelled)
}

func (s *BillingService) transitionOffer(ctx context.Context, loanID, target string) (*domain.Loan, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusPending {
		return nil, customError.WrapInvalidTransition(loan.Status, target)
	}
	if err = s.LoanRepo.UpdateStatus(ctx, loanID, target); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	loan.Status = target
	return loan, nil
}

// GetSchedule computes the loan's schedule on demand from its terms.
func (s *BillingService) GetSchedule(ctx context.Context, loanID string) (*domain.Loan, *domain.Schedule, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}
	schedule, err := engine.ComputeSchedule(loan.LoanTerms)
	if err != nil {
		return nil, nil, err
	}
	metrics.SchedulesComputed.Inc()
	return loan, schedule, nil
}

// GetOutstanding returns the loan's aggregate repayment figures, derived
// from schedule and payment history. Figures are cached briefly in redis
// and the cache is dropped on every payment state transition.
func (s *BillingService) GetOutstanding(ctx context.Context, loanID string) (*domain.OutstandingResponse, error) {
	if cached := s.cachedOutstanding(ctx, loanID); cached != nil {
		return cached, nil
	}

	loan, schedule, err := s.GetSchedule(ctx, loanID)
	if err != nil {
		return nil, err
	}
	payments, err := s.PaymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	figures := engine.ComputeOutstanding(loan, schedule, payments, time.Now())
	resp := &domain.OutstandingResponse{
		LoanID:               loanID,
		OutstandingPrincipal: figures.OutstandingPrincipal,
		OutstandingTotal:     figures.OutstandingTotal,
		DueAmount:            figures.DueAmount,
		OverdueAmount:        figures.OverdueAmount,
	}
	s.cacheOutstanding(ctx, resp)
	return resp, nil
}

// SubmitPayment validates a borrower's payment attempt against the loan's
// schedule and history and records it as pending. The at-most-one-pending
// rule is enforced transactionally in the store; a duplicate losing the
// race surfaces as DuplicatePendingPayment, and transient store failures
// get one automatic retry.
func (s *BillingService) SubmitPayment(ctx context.Context, loanID string, party *auth.Party, amount decimal.Decimal, mode, reference string, submittedAt time.Time) (*domain.Payment, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !auth.CanSubmit(party, loan.BorrowerID) {
		return nil, customError.WrapNotAuthorized("submit payments")
	}
	if loan.Status != domain.LoanStatusAccepted {
		return nil, customError.WrapLoanNotAccepted(loanID, loan.Status)
	}

	schedule, err := engine.ComputeSchedule(loan.LoanTerms)
	if err != nil {
		return nil, err
	}
	history, err := s.PaymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	payment, err := engine.ValidatePayment(loan, schedule, history, amount, submittedAt)
	if err != nil {
		metrics.PaymentsSubmitted.WithLabelValues(customError.CodeOf(err)).Inc()
		return nil, err
	}
	payment.Mode = mode
	payment.Reference = reference

	if err = s.PaymentRepo.CreatePending(ctx, payment, loan.AllowPartialPayment); err != nil {
		if customError.CodeOf(err) != "" {
			metrics.PaymentsSubmitted.WithLabelValues(customError.CodeOf(err)).Inc()
			return nil, err
		}
		// One retry for transient store failures; a second failure is final.
		if err = s.PaymentRepo.CreatePending(ctx, payment, loan.AllowPartialPayment); err != nil {
			if customError.CodeOf(err) != "" {
				return nil, err
			}
			return nil, customError.WrapDatabaseError(err)
		}
	}

	metrics.PaymentsSubmitted.WithLabelValues("accepted").Inc()
	notify.Dispatch(s.notifier, notify.Event{
		Type:    notify.EventPaymentSubmitted,
		LoanID:  loanID,
		PartyID: loan.LenderID,
		Message: fmt.Sprintf("Payment of %s submitted against installment %d", payment.Amount, payment.InstallmentNumber),
	})
	return payment, nil
}

// ApprovePayment marks a pending payment paid and advances the loan cursor,
// as one atomic store transaction. Approving the final installment also
// completes the loan.
func (s *BillingService) ApprovePayment(ctx context.Context, paymentID uuid.UUID, party *auth.Party) (*domain.Payment, *domain.Loan, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	loan, err := s.getLoan(ctx, payment.LoanID)
	if err != nil {
		return nil, nil, err
	}
	if !auth.CanDecide(party, loan.LenderID) {
		return nil, nil, customError.WrapNotAuthorized("approve payments")
	}
	if !engine.CanTransition(payment.Status, domain.PaymentStatusPaid) {
		return nil, nil, customError.WrapInvalidTransition(payment.Status, domain.PaymentStatusPaid)
	}

	schedule, err := engine.ComputeSchedule(loan.LoanTerms)
	if err != nil {
		return nil, nil, err
	}
	closeLoan := payment.InstallmentNumber >= schedule.InstallmentCount

	now := time.Now()
	if err = s.PaymentRepo.Approve(ctx, payment.ID, loan.LoanID, payment.InstallmentNumber, now, closeLoan); err != nil {
		if customError.CodeOf(err) != "" {
			return nil, nil, err
		}
		return nil, nil, customError.WrapDatabaseError(err)
	}

	if err = engine.ApprovePayment(payment, now); err != nil {
		return nil, nil, err
	}
	loan.AdvanceCursor(payment.InstallmentNumber)
	if closeLoan {
		loan.Status = domain.LoanStatusCompleted
	}

	s.dropOutstandingCache(ctx, loan.LoanID)
	metrics.PaymentTransitions.WithLabelValues(domain.PaymentStatusPaid).Inc()
	notify.Dispatch(s.notifier, notify.Event{
		Type:    notify.EventPaymentApproved,
		LoanID:  loan.LoanID,
		PartyID: loan.BorrowerID,
		Message: fmt.Sprintf("Payment of %s for installment %d approved", payment.Amount, payment.InstallmentNumber),
	})
	if closeLoan {
		notify.Dispatch(s.notifier, notify.Event{
			Type:    notify.EventLoanCompleted,
			LoanID:  loan.LoanID,
			PartyID: loan.BorrowerID,
			Message: fmt.Sprintf("Loan %s fully repaid", loan.LoanID),
		})
	}
	return payment, loan, nil
}

// RejectPayment marks a pending payment rejected with an optional reason.
func (s *BillingService) RejectPayment(ctx context.Context, paymentID uuid.UUID, party *auth.Party, reason string) (*domain.Payment, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	loan, err := s.getLoan(ctx, payment.LoanID)
	if err != nil {
		return nil, err
	}
	if !auth.CanDecide(party, loan.LenderID) {
		return nil, customError.WrapNotAuthorized("reject payments")
	}
	if err = engine.RejectPayment(payment, reason); err != nil {
		return nil, err
	}
	if err = s.PaymentRepo.Reject(ctx, payment.ID, reason); err != nil {
		if customError.CodeOf(err) != "" {
			return nil, err
		}
		return nil, customError.WrapDatabaseError(err)
	}

	s.dropOutstandingCache(ctx, loan.LoanID)
	metrics.PaymentTransitions.WithLabelValues(domain.PaymentStatusRejected).Inc()
	notify.Dispatch(s.notifier, notify.Event{
		Type:    notify.EventPaymentRejected,
		LoanID:  loan.LoanID,
		PartyID: loan.BorrowerID,
		Message: fmt.Sprintf("Payment of %s rejected: %s", payment.Amount, reason),
	})
	return payment, nil
}

// ExpirePendingPayments moves every payment pending longer than the
// configured TTL to expired. The sweep only touches pending rows, so
// re-running it is idempotent.
func (s *BillingService) ExpirePendingPayments(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.config.Business.PendingPaymentTTL)
	count, err := s.PaymentRepo.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}
	if count > 0 {
		metrics.PaymentsExpired.Add(float64(count))
	}
	return count, nil
}

// SendDueReminders notifies borrowers of accepted loans whose next
// installment falls due within the configured lead window.
func (s *BillingService) SendDueReminders(ctx context.Context) error {
	loans, err := s.LoanRepo.ListByStatus(ctx, domain.LoanStatusAccepted)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	horizon := time.Now().AddDate(0, 0, s.config.Business.ReminderLeadDays)
	for _, loan := range loans {
		schedule, err := engine.ComputeSchedule(loan.LoanTerms)
		if err != nil {
			continue
		}
		entry := schedule.EntryAt(loan.CurrentInstallment)
		if entry == nil || entry.DueDate.After(horizon) {
			continue
		}
		notify.Dispatch(s.notifier, notify.Event{
			Type:    notify.EventInstallmentDue,
			LoanID:  loan.LoanID,
			PartyID: loan.BorrowerID,
			Message: fmt.Sprintf("Installment %d of %s due %s", entry.Number, entry.Total, entry.DueDate.Format("2006-01-02")),
		})
	}
	return nil
}

func (s *BillingService) getLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func (s *BillingService) getPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.PaymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapPaymentNotFound(paymentID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return payment, nil
}

func (s *BillingService) outstandingCacheKey(loanID string) string {
	return "loan:outstanding:" + loanID
}

func (s *BillingService) cachedOutstanding(ctx context.Context, loanID string) *domain.OutstandingResponse {
	if s.redis == nil {
		return nil
	}
	raw, err := s.redis.Get(ctx, s.outstandingCacheKey(loanID)).Bytes()
	if err != nil {
		return nil
	}
	var resp domain.OutstandingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil
	}
	return &resp
}

func (s *BillingService) cacheOutstanding(ctx context.Context, resp *domain.OutstandingResponse) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	s.redis.Set(ctx, s.outstandingCacheKey(resp.LoanID), raw, s.config.Business.OutstandingCacheTTL)
}

func (s *BillingService) dropOutstandingCache(ctx context.Context, loanID string) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, s.outstandingCacheKey(loanID))
}
