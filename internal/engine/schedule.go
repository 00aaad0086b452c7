package engine

import (
	"fmt"

	"github.com/danaru/lending-engine/internal/domain"
	customError "github.com/danaru/lending-engine/pkg/errors"
	"github.com/danaru/lending-engine/pkg/utils"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// ComputeSchedule derives the full amortization schedule for the given
// terms. It is pure: the same terms always produce the same schedule, so
// schedules are recomputed on demand rather than stored.
//
// Money is rounded to two decimal places per entry. Whatever rounding
// residue accumulates across the schedule is folded into the final entry,
// so the principal portions always sum exactly to the original principal
// and the remaining balance reaches exactly zero.
func ComputeSchedule(terms domain.LoanTerms) (*domain.Schedule, error) {
	if err := validateTerms(terms); err != nil {
		return nil, err
	}

	n, err := utils.InstallmentCount(terms.TenureValue, terms.TenureUnit, terms.RepaymentFrequency)
	if err != nil {
		return nil, customError.WrapInvalidTerms(err.Error())
	}

	rate := utils.PeriodicRate(terms.AnnualInterestRate, terms.RepaymentFrequency)

	var entries []domain.ScheduleEntry
	switch terms.RepaymentType {
	case domain.RepayEqualInstallment:
		if terms.InterestType == domain.InterestReducing {
			entries = reducingInstallments(terms, rate, n)
		} else {
			entries = fixedInstallments(terms, rate, n)
		}
	case domain.RepayInterestOnly:
		entries = interestOnlyInstallments(terms, rate, n)
	case domain.RepayFullAtEnd:
		entries = bulletInstallment(terms, rate, n)
	default:
		return nil, customError.WrapInvalidTerms(fmt.Sprintf("unknown repayment type %q", terms.RepaymentType))
	}

	schedule := &domain.Schedule{
		Entries:          entries,
		InstallmentCount: len(entries),
	}
	for _, e := range entries {
		schedule.TotalInterest = schedule.TotalInterest.Add(e.Interest)
	}
	schedule.TotalAmount = terms.Principal.Add(schedule.TotalInterest)

	// A single installment amount is only meaningful when every entry
	// charges the same total.
	uniform := true
	for _, e := range entries[1:] {
		if !e.Total.Equal(entries[0].Total) {
			uniform = false
			break
		}
	}
	if uniform {
		amount := entries[0].Total
		schedule.InstallmentAmount = &amount
	}

	return schedule, nil
}

func validateTerms(terms domain.LoanTerms) error {
	if terms.Principal.LessThanOrEqual(decimal.Zero) {
		return customError.WrapInvalidTerms("principal must be positive")
	}
	if terms.TenureValue <= 0 {
		return customError.WrapInvalidTerms("tenure must be positive")
	}
	if terms.AnnualInterestRate.IsNegative() {
		return customError.WrapInvalidTerms("interest rate must not be negative")
	}
	return nil
}

// reducingInstallments amortizes with the standard annuity formula:
// installment = P*r*(1+r)^n / ((1+r)^n - 1). Each period's interest is
// charged on the balance still outstanding.
func reducingInstallments(terms domain.LoanTerms, rate decimal.Decimal, n int) []domain.ScheduleEntry {
	principal := terms.Principal

	var installment decimal.Decimal
	if rate.IsZero() {
		// Zero rate: plain equal division, no annuity factor.
		installment = principal.Div(decimal.NewFromInt(int64(n))).Round(2)
	} else {
		factor := one.Add(rate).Pow(decimal.NewFromInt(int64(n)))
		installment = principal.Mul(rate).Mul(factor).Div(factor.Sub(one)).Round(2)
	}

	entries := make([]domain.ScheduleEntry, 0, n)
	remaining := principal
	for k := 1; k <= n; k++ {
		interest := remaining.Mul(rate).Round(2)
		principalPart := installment.Sub(interest)

		// Final entry: the whole remaining balance becomes principal and
		// the rounding residue folds into the interest side, keeping the
		// installment total uniform and the balance exactly zero. At zero
		// rate there is no interest side to absorb it: the final total just
		// differs, so the loan never charges interest it did not accrue.
		if k == n {
			principalPart = remaining
			interest = decimal.Zero
			if !rate.IsZero() {
				if fold := installment.Sub(principalPart); fold.IsPositive() {
					interest = fold
				}
			}
		}
		remaining = remaining.Sub(principalPart)

		entries = append(entries, domain.ScheduleEntry{
			Number:           k,
			DueDate:          utils.AddPeriods(terms.StartDate, terms.RepaymentFrequency, k),
			Principal:        principalPart,
			Interest:         interest,
			Total:            principalPart.Add(interest),
			RemainingBalance: remaining,
		})
	}
	return entries
}

// fixedInstallments charges flat interest on the original principal every
// period and splits the principal evenly. The division residue folds into
// the final entry's interest the same way the reducing branch does, so the
// installment total stays uniform.
func fixedInstallments(terms domain.LoanTerms, rate decimal.Decimal, n int) []domain.ScheduleEntry {
	principal := terms.Principal
	interestPer := principal.Mul(rate).Round(2)
	principalPer := principal.Div(decimal.NewFromInt(int64(n))).Round(2)
	installment := principalPer.Add(interestPer)

	entries := make([]domain.ScheduleEntry, 0, n)
	remaining := principal
	for k := 1; k <= n; k++ {
		principalPart := principalPer
		interest := interestPer
		if k == n {
			principalPart = remaining
			interest = decimal.Zero
			if !rate.IsZero() {
				if fold := installment.Sub(principalPart); fold.IsPositive() {
					interest = fold
				}
			}
		}
		remaining = remaining.Sub(principalPart)

		entries = append(entries, domain.ScheduleEntry{
			Number:           k,
			DueDate:          utils.AddPeriods(terms.StartDate, terms.RepaymentFrequency, k),
			Principal:        principalPart,
			Interest:         interest,
			Total:            principalPart.Add(interest),
			RemainingBalance: remaining,
		})
	}
	return entries
}

// interestOnlyInstallments carries the whole principal to the final entry;
// the first n-1 entries charge only the period's interest. With nothing
// repaid mid-tenure the balance stays at the original principal, so fixed
// and reducing interest charge the same amount each period.
func interestOnlyInstallments(terms domain.LoanTerms, rate decimal.Decimal, n int) []domain.ScheduleEntry {
	principal := terms.Principal
	interestPer := principal.Mul(rate).Round(2)

	entries := make([]domain.ScheduleEntry, 0, n)
	for k := 1; k <= n; k++ {
		entry := domain.ScheduleEntry{
			Number:           k,
			DueDate:          utils.AddPeriods(terms.StartDate, terms.RepaymentFrequency, k),
			Principal:        decimal.Zero,
			Interest:         interestPer,
			Total:            interestPer,
			RemainingBalance: principal,
		}
		if k == n {
			entry.Principal = principal
			entry.Total = principal.Add(interestPer)
			entry.RemainingBalance = decimal.Zero
		}
		entries = append(entries, entry)
	}
	return entries
}

// bulletInstallment is a single payment at the end of the tenure. Fixed
// interest accrues simple (P*r*n); reducing interest compounds, since the
// balance is never paid down in between.
func bulletInstallment(terms domain.LoanTerms, rate decimal.Decimal, n int) []domain.ScheduleEntry {
	principal := terms.Principal

	var interest decimal.Decimal
	if terms.InterestType == domain.InterestReducing {
		factor := one.Add(rate).Pow(decimal.NewFromInt(int64(n)))
		interest = principal.Mul(factor.Sub(one)).Round(2)
	} else {
		interest = principal.Mul(rate).Mul(decimal.NewFromInt(int64(n))).Round(2)
	}

	return []domain.ScheduleEntry{{
		Number:           1,
		DueDate:          utils.AddPeriods(terms.StartDate, terms.RepaymentFrequency, n),
		Principal:        principal,
		Interest:         interest,
		Total:            principal.Add(interest),
		RemainingBalance: decimal.Zero,
	}}
}
