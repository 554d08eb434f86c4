package enums

import "fmt"

// DeliveryStatus is the rider-facing sub-state of an order.
type DeliveryStatus string

const (
	DeliveryNotAssigned DeliveryStatus = "not_assigned"
	DeliveryAssigned    DeliveryStatus = "assigned"
	DeliveryPickedUp    DeliveryStatus = "picked_up"
	DeliveryInTransit   DeliveryStatus = "in_transit"
	DeliveryDelivered   DeliveryStatus = "delivered"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryNotAssigned,
	DeliveryAssigned,
	DeliveryPickedUp,
	DeliveryInTransit,
	DeliveryDelivered,
}

func (s DeliveryStatus) String() string {
	return string(s)
}

func (s DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether a rider currently holds the delivery.
func (s DeliveryStatus) IsActive() bool {
	return s == DeliveryAssigned || s == DeliveryPickedUp || s == DeliveryInTransit
}

func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
