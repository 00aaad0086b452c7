package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleEntry is one installment in an amortization schedule. Entries are
// numbered from 1 and contiguous; RemainingBalance is the principal still
// outstanding after this installment is settled.
type ScheduleEntry struct {
	Number           int             `json:"number"`
	DueDate          time.Time       `json:"due_date"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	Total            decimal.Decimal `json:"total"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// Schedule is the full repayment plan derived from a loan's terms. It is
// computed on demand and never stored; the same terms always produce the
// same schedule.
type Schedule struct {
	Entries           []ScheduleEntry  `json:"entries"`
	TotalInterest     decimal.Decimal  `json:"total_interest"`
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount,omitempty"`
	InstallmentCount  int              `json:"installment_count"`
}

// EntryAt returns the entry with the given installment number, or nil when
// the number is out of range.
func (s *Schedule) EntryAt(number int) *ScheduleEntry {
	if number < 1 || number > len(s.Entries) {
		return nil
	}
	return &s.Entries[number-1]
}

type ScheduleResponse struct {
	LoanID   string    `json:"loan_id"`
	Schedule *Schedule `json:"schedule"`
}
