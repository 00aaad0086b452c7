package engine

import (
	"testing"
	"time"

	"github.com/danaru/lending-engine/internal/domain"
	customError "github.com/danaru/lending-engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(domain.PaymentStatusPending, domain.PaymentStatusPaid))
	assert.True(t, CanTransition(domain.PaymentStatusPending, domain.PaymentStatusRejected))
	assert.True(t, CanTransition(domain.PaymentStatusPending, domain.PaymentStatusExpired))

	// Terminal states allow nothing.
	for _, terminal := range []string{domain.PaymentStatusPaid, domain.PaymentStatusRejected, domain.PaymentStatusExpired} {
		for _, target := range []string{domain.PaymentStatusPaid, domain.PaymentStatusRejected, domain.PaymentStatusExpired, domain.PaymentStatusPending} {
			assert.False(t, CanTransition(terminal, target), "%s -> %s", terminal, target)
		}
	}
}

func TestApprovePaymentTransition(t *testing.T) {
	now := time.Now()
	p := &domain.Payment{Status: domain.PaymentStatusPending}

	require.NoError(t, ApprovePayment(p, now))
	assert.Equal(t, domain.PaymentStatusPaid, p.Status)
	require.NotNil(t, p.PaidAt)
	assert.Equal(t, now, *p.PaidAt)

	// Second approval of the same payment is refused.
	err := ApprovePayment(p, now)
	assert.ErrorIs(t, err, customError.ErrInvalidTransition)
}

func TestRejectPaymentTransition(t *testing.T) {
	p := &domain.Payment{Status: domain.PaymentStatusPending}

	require.NoError(t, RejectPayment(p, "amount disputed"))
	assert.Equal(t, domain.PaymentStatusRejected, p.Status)
	assert.Equal(t, "amount disputed", p.RejectReason)
	assert.Nil(t, p.PaidAt)

	assert.ErrorIs(t, ExpirePayment(p), customError.ErrInvalidTransition)
}

func TestExpirePaymentTransition(t *testing.T) {
	p := &domain.Payment{Status: domain.PaymentStatusPending}

	require.NoError(t, ExpirePayment(p))
	assert.Equal(t, domain.PaymentStatusExpired, p.Status)

	assert.ErrorIs(t, ApprovePayment(p, time.Now()), customError.ErrInvalidTransition)
	assert.ErrorIs(t, RejectPayment(p, "late"), customError.ErrInvalidTransition)
}
