package notify

import "log"

// Event describes a committed state transition worth telling a party about.
type Event struct {
	Type    string
	LoanID  string
	PartyID string
	Message string
}

// Event types
const (
	EventPaymentSubmitted = "payment_submitted"
	EventPaymentApproved  = "payment_approved"
	EventPaymentRejected  = "payment_rejected"
	EventPaymentExpired   = "payment_expired"
	EventInstallmentDue   = "installment_due"
	EventLoanAccepted     = "loan_accepted"
	EventLoanCompleted    = "loan_completed"
)

// Sink receives events after the transition that produced them has
// committed. Delivery is best-effort: a failing sink is logged, never
// propagated, and never rolls anything back.
type Sink interface {
	Notify(event Event) error
}

// LogSink writes events to the process log. It is the default sink when no
// push gateway is wired in.
type LogSink struct{}

func (LogSink) Notify(event Event) error {
	log.Printf("notify %s loan=%s party=%s: %s", event.Type, event.LoanID, event.PartyID, event.Message)
	return nil
}

// Dispatch sends the event on a separate goroutine and logs failures.
func Dispatch(sink Sink, event Event) {
	if sink == nil {
		return
	}
	go func() {
		if err := sink.Notify(event); err != nil {
			log.Printf("notification dispatch failed for %s on loan %s: %v", event.Type, event.LoanID, err)
		}
	}()
}
