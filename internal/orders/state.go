package orders

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

// forwardEdges is the single-step progression UpdateStatus may take. Cancellation and refunds
// leave the chain through their own operations.
var forwardEdges = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusPending:          enums.OrderStatusConfirmed,
	enums.OrderStatusConfirmed:        enums.OrderStatusShopping,
	enums.OrderStatusShopping:         enums.OrderStatusReadyForDelivery,
	enums.OrderStatusReadyForDelivery: enums.OrderStatusOutForDelivery,
	enums.OrderStatusOutForDelivery:   enums.OrderStatusDelivered,
}

// CanProgress reports whether to is the next step after from.
func CanProgress(from, to enums.OrderStatus) bool {
	next, ok := forwardEdges[from]
	return ok && next == to
}

// CanCancel reports whether an order in status may still be cancelled.
func CanCancel(status enums.OrderStatus) bool {
	return !status.IsTerminal() && status != enums.OrderStatusDelivered
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

// NewOrderNumber returns NM, the last eight digits of the unix-millis clock and three random digits.
func NewOrderNumber(now time.Time) string {
	millis := now.UnixMilli() % 100_000_000
	return fmt.Sprintf("NM%08d%03d", millis, rand.IntN(1000))
}

func defaultStatusDescription(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusPending:
		return "Order placed"
	case enums.OrderStatusConfirmed:
		return "Order confirmed"
	case enums.OrderStatusShopping:
		return "Agent is shopping for your items at the market"
	case enums.OrderStatusReadyForDelivery:
		return "Items purchased and ready for delivery"
	case enums.OrderStatusOutForDelivery:
		return "Order picked up by rider"
	case enums.OrderStatusDelivered:
		return "Order delivered to buyer"
	case enums.OrderStatusCancelled:
		return "Order cancelled"
	case enums.OrderStatusRefunded:
		return "Payment refunded to buyer"
	default:
		return "Order status updated to " + string(status)
	}
}
