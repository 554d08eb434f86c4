package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateShoppingList OutboxAggregateType = "shopping_list"
	AggregateUser         OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateShoppingList,
	AggregateUser,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event written to the outbox.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order_created"
	EventOrderStatusChanged     OutboxEventType = "order_status_changed"
	EventOrderAssigned          OutboxEventType = "order_assigned"
	EventOrderCancelled         OutboxEventType = "order_cancelled"
	EventOrderDeliveryConfirmed OutboxEventType = "order_delivery_confirmed"
	EventPaymentInitialized     OutboxEventType = "payment_initialized"
	EventPaymentHeld            OutboxEventType = "payment_held"
	EventPaymentFailed          OutboxEventType = "payment_failed"
	EventPaymentRefunded        OutboxEventType = "payment_refunded"
	EventEscrowReleased         OutboxEventType = "escrow_released"
	EventEscrowStale            OutboxEventType = "escrow_stale"
	EventShoppingListAssigned   OutboxEventType = "shopping_list_assigned"
	EventShoppingListConverted  OutboxEventType = "shopping_list_converted"
	EventUserRoleChanged        OutboxEventType = "user_role_changed"
	EventUserStatusChanged      OutboxEventType = "user_status_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderAssigned,
	EventOrderCancelled,
	EventOrderDeliveryConfirmed,
	EventPaymentInitialized,
	EventPaymentHeld,
	EventPaymentFailed,
	EventPaymentRefunded,
	EventEscrowReleased,
	EventEscrowStale,
	EventShoppingListAssigned,
	EventShoppingListConverted,
	EventUserRoleChanged,
	EventUserStatusChanged,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
