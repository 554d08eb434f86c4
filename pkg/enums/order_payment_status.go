package enums

import "fmt"

// OrderPaymentStatus mirrors the escrow position on the order itself.
type OrderPaymentStatus string

const (
	OrderPaymentPending      OrderPaymentStatus = "pending"
	OrderPaymentHeldInEscrow OrderPaymentStatus = "held_in_escrow"
	OrderPaymentReleased     OrderPaymentStatus = "released"
	OrderPaymentRefunded     OrderPaymentStatus = "refunded"
)

var validOrderPaymentStatuses = []OrderPaymentStatus{
	OrderPaymentPending,
	OrderPaymentHeldInEscrow,
	OrderPaymentReleased,
	OrderPaymentRefunded,
}

func (s OrderPaymentStatus) String() string {
	return string(s)
}

func (s OrderPaymentStatus) IsValid() bool {
	for _, candidate := range validOrderPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseOrderPaymentStatus(value string) (OrderPaymentStatus, error) {
	for _, candidate := range validOrderPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order payment status %q", value)
}
