package engine

import (
	"time"

	"github.com/danaru/lending-engine/internal/domain"
	customError "github.com/danaru/lending-engine/pkg/errors"
)

// Payment lifecycle: pending is the only live state; paid, rejected and
// expired are terminal. paid is reachable only through lender approval,
// which is also the sole trigger for advancing the loan cursor.
var transitions = map[string][]string{
	domain.PaymentStatusPending: {
		domain.PaymentStatusPaid,
		domain.PaymentStatusRejected,
		domain.PaymentStatusExpired,
	},
}

// CanTransition reports whether a payment in state from may move to state to.
func CanTransition(from, to string) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ApprovePayment marks a pending payment paid and stamps the approval time.
func ApprovePayment(p *domain.Payment, at time.Time) error {
	if err := transition(p, domain.PaymentStatusPaid); err != nil {
		return err
	}
	p.PaidAt = &at
	return nil
}

// RejectPayment marks a pending payment rejected with an optional reason.
func RejectPayment(p *domain.Payment, reason string) error {
	if err := transition(p, domain.PaymentStatusRejected); err != nil {
		return err
	}
	p.RejectReason = reason
	return nil
}

// ExpirePayment marks a pending payment expired. The expiry sweep only ever
// touches payments still pending, so re-running it is safe.
func ExpirePayment(p *domain.Payment) error {
	return transition(p, domain.PaymentStatusExpired)
}

func transition(p *domain.Payment, to string) error {
	if !CanTransition(p.Status, to) {
		return customError.WrapInvalidTransition(p.Status, to)
	}
	p.Status = to
	return nil
}
