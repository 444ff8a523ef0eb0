package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancelDecisionFor(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		status  Status
		allowed bool
	}{
		{"buyer pending payment", RoleBuyer, StatusPendingPayment, true},
		{"buyer to be confirmed", RoleBuyer, StatusToBeConfirmed, true},
		{"buyer confirmed", RoleBuyer, StatusConfirmed, false},
		{"buyer delivery in progress", RoleBuyer, StatusDeliveryInProgress, false},
		{"buyer completed", RoleBuyer, StatusCompleted, false},
		{"buyer cancelled", RoleBuyer, StatusCancelled, false},

		{"merchant pending payment", RoleMerchant, StatusPendingPayment, true},
		{"merchant to be confirmed", RoleMerchant, StatusToBeConfirmed, true},
		{"merchant confirmed", RoleMerchant, StatusConfirmed, true},
		{"merchant delivery in progress", RoleMerchant, StatusDeliveryInProgress, true},
		{"merchant completed", RoleMerchant, StatusCompleted, true},
		{"merchant cancelled", RoleMerchant, StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := CancelDecisionFor(tt.role, tt.status)
			assert.Equal(t, tt.allowed, decision.Allowed)
		})
	}
}

func TestStatusCodes(t *testing.T) {
	// 数值状态码是对外契约，不能因重构漂移
	assert.Equal(t, 1, int(StatusPendingPayment))
	assert.Equal(t, 2, int(StatusToBeConfirmed))
	assert.Equal(t, 3, int(StatusConfirmed))
	assert.Equal(t, 4, int(StatusDeliveryInProgress))
	assert.Equal(t, 5, int(StatusCompleted))
	assert.Equal(t, 6, int(StatusCancelled))

	assert.Equal(t, 0, int(PayStatusUnpaid))
	assert.Equal(t, 1, int(PayStatusPaid))
	assert.Equal(t, 2, int(PayStatusRefund))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPendingPayment.IsTerminal())
	assert.False(t, StatusToBeConfirmed.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
	assert.False(t, StatusDeliveryInProgress.IsTerminal())
}
