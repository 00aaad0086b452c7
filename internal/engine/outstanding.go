package engine

import (
	"time"

	"github.com/danaru/lending-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// OutstandingFigures are the aggregate repayment figures for a loan at a
// point in time. They are derived from schedule plus payment history on
// every read; nothing here is cached or stored.
type OutstandingFigures struct {
	OutstandingPrincipal decimal.Decimal
	OutstandingTotal     decimal.Decimal
	DueAmount            decimal.Decimal
	OverdueAmount        decimal.Decimal
}

// ComputeOutstanding allocates the cumulative amount of paid payments
// across schedule entries oldest-first and reports what is still owed.
//
// Principal is recognized only for the part of an entry's allocation above
// its interest charge, capped at the entry's own principal portion. For
// interest-only loans that means principal is recognized only on the final
// entry, the one that actually carries it.
//
// DueAmount is the uncovered remainder of the first entry not yet fully
// covered, once its due date has arrived. OverdueAmount sums the uncovered
// remainders of every entry whose due date plus the loan's grace period is
// already past: within the grace window an unpaid entry is due, not overdue.
func ComputeOutstanding(loan *domain.Loan, schedule *domain.Schedule, payments []*domain.Payment, asOf time.Time) OutstandingFigures {
	var totalPaid decimal.Decimal
	for _, p := range payments {
		if p.Status == domain.PaymentStatusPaid {
			totalPaid = totalPaid.Add(p.Amount)
		}
	}

	pool := totalPaid
	var principalRecognized decimal.Decimal
	var due, overdue decimal.Decimal
	dueFound := false

	for i := range schedule.Entries {
		entry := &schedule.Entries[i]

		alloc := entry.Total
		if pool.LessThan(alloc) {
			alloc = pool
		}
		pool = pool.Sub(alloc)

		recognized := alloc.Sub(entry.Interest)
		if recognized.IsNegative() {
			recognized = decimal.Zero
		}
		if recognized.GreaterThan(entry.Principal) {
			recognized = entry.Principal
		}
		principalRecognized = principalRecognized.Add(recognized)

		uncovered := entry.Total.Sub(alloc)
		if uncovered.IsPositive() {
			if !dueFound && !entry.DueDate.After(asOf) {
				due = uncovered
			}
			dueFound = true
			graceEnd := entry.DueDate.AddDate(0, 0, loan.GracePeriodDays)
			if graceEnd.Before(asOf) {
				overdue = overdue.Add(uncovered)
			}
		}
	}

	outstandingPrincipal := loan.Principal.Sub(principalRecognized)
	if outstandingPrincipal.IsNegative() {
		outstandingPrincipal = decimal.Zero
	}
	outstandingTotal := schedule.TotalAmount.Sub(totalPaid)
	if outstandingTotal.IsNegative() {
		outstandingTotal = decimal.Zero
	}

	return OutstandingFigures{
		OutstandingPrincipal: outstandingPrincipal,
		OutstandingTotal:     outstandingTotal,
		DueAmount:            due,
		OverdueAmount:        overdue,
	}
}
