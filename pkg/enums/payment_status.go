package enums

import "fmt"

// PaymentStatus tracks the gateway lifecycle of a payment record.
type PaymentStatus string

const (
	PaymentStatusPending      PaymentStatus = "pending"
	PaymentStatusProcessing   PaymentStatus = "processing"
	PaymentStatusHeldInEscrow PaymentStatus = "held_in_escrow"
	PaymentStatusReleased     PaymentStatus = "released"
	PaymentStatusFailed       PaymentStatus = "failed"
	PaymentStatusRefunded     PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusHeldInEscrow,
	PaymentStatusReleased,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsFinal reports whether the payment can no longer be mutated.
func (p PaymentStatus) IsFinal() bool {
	return p == PaymentStatusReleased || p == PaymentStatusRefunded
}

// AwaitsGateway reports whether verification may still move the payment into escrow.
func (p PaymentStatus) AwaitsGateway() bool {
	return p == PaymentStatusPending || p == PaymentStatusProcessing
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
