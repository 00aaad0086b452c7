package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRejected = "rejected"
	PaymentStatusExpired  = "expired"
)

// Payment is a borrower's repayment attempt against one installment. Status
// (and PaidAt on approval) is the only field that changes after creation.
type Payment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	LoanID            string          `json:"loan_id" db:"loan_id"`
	InstallmentNumber int             `json:"installment_number" db:"installment_number"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Mode              string          `json:"mode" db:"mode"`
	Reference         string          `json:"reference" db:"reference"`
	Status            string          `json:"status" db:"status"`
	RejectReason      string          `json:"reject_reason,omitempty" db:"reject_reason"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	PaidAt            *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
}

type SubmitPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Mode        string          `json:"mode" validate:"required"`
	Reference   string          `json:"reference"`
	SubmittedAt interface{}     `json:"submitted_at"`
}

type RejectPaymentRequest struct {
	Reason string `json:"reason"`
}
