// Package render turns computed schedules into displayable documents.
package render

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/danaru/lending-engine/internal/domain"
)

// ScheduleText renders a schedule as an aligned, printable table.
func ScheduleText(loan *domain.Loan, schedule *domain.Schedule) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Repayment schedule for loan %s\n", loan.LoanID)
	fmt.Fprintf(&b, "Principal %s at %s%% (%s, %s)\n\n",
		loan.Principal, loan.AnnualInterestRate, loan.InterestType, loan.RepaymentFrequency)

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "#\tDue date\tPrincipal\tInterest\tTotal\tBalance\t")
	for _, e := range schedule.Entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			e.Number,
			e.DueDate.Format("2006-01-02"),
			e.Principal.StringFixed(2),
			e.Interest.StringFixed(2),
			e.Total.StringFixed(2),
			e.RemainingBalance.StringFixed(2),
		)
	}
	w.Flush()

	fmt.Fprintf(&b, "\nTotal interest: %s\n", schedule.TotalInterest.StringFixed(2))
	fmt.Fprintf(&b, "Total repayable: %s\n", schedule.TotalAmount.StringFixed(2))
	if schedule.InstallmentAmount != nil {
		fmt.Fprintf(&b, "Installment amount: %s\n", schedule.InstallmentAmount.StringFixed(2))
	}

	return b.String()
}
