// Package registry maps outbox event types to their Pub/Sub topic and typed payload.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/naijamall/naijamall-backend/pkg/config"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/outbox/payloads"
)

// EventDescriptor ties an event type to its aggregate, destination topic and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a validated outbox row ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// PermanentError marks a row that will fail the same way on every attempt.
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string {
	if e.Err == nil {
		return "permanent outbox failure"
	}
	return e.Err.Error()
}

func (e PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the publisher dead-letters instead of retrying.
func Permanent(err error) error {
	return PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is a PermanentError.
func IsPermanent(err error) bool {
	var perm PermanentError
	return errors.As(err, &perm)
}

type route struct {
	event     enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	payload   func() any
}

// Order lifecycle, shopping list and role changes share the orders topic. Everything that moves
// money goes to the payments topic.
var (
	orderRoutes = []route{
		{enums.EventOrderCreated, enums.AggregateOrder, func() any { return &payloads.OrderCreatedEvent{} }},
		{enums.EventOrderStatusChanged, enums.AggregateOrder, func() any { return &payloads.OrderStatusChangedEvent{} }},
		{enums.EventOrderAssigned, enums.AggregateOrder, func() any { return &payloads.OrderAssignedEvent{} }},
		{enums.EventOrderCancelled, enums.AggregateOrder, func() any { return &payloads.OrderCancelledEvent{} }},
		{enums.EventOrderDeliveryConfirmed, enums.AggregateOrder, func() any { return &payloads.OrderDeliveryConfirmedEvent{} }},
		{enums.EventShoppingListAssigned, enums.AggregateShoppingList, func() any { return &payloads.ShoppingListEvent{} }},
		{enums.EventShoppingListConverted, enums.AggregateShoppingList, func() any { return &payloads.ShoppingListEvent{} }},
		{enums.EventUserRoleChanged, enums.AggregateUser, func() any { return &payloads.UserRoleChangedEvent{} }},
		{enums.EventUserStatusChanged, enums.AggregateUser, func() any { return &payloads.UserStatusChangedEvent{} }},
	}
	paymentRoutes = []route{
		{enums.EventPaymentInitialized, enums.AggregatePayment, func() any { return &payloads.PaymentEvent{} }},
		{enums.EventPaymentHeld, enums.AggregatePayment, func() any { return &payloads.PaymentEvent{} }},
		{enums.EventPaymentFailed, enums.AggregatePayment, func() any { return &payloads.PaymentEvent{} }},
		{enums.EventPaymentRefunded, enums.AggregatePayment, func() any { return &payloads.PaymentEvent{} }},
		{enums.EventEscrowReleased, enums.AggregatePayment, func() any { return &payloads.EscrowReleasedEvent{} }},
		{enums.EventEscrowStale, enums.AggregatePayment, func() any { return &payloads.EscrowStaleEvent{} }},
	}
)

// EventRegistry resolves outbox rows against the known event catalogue.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	if cfg.PaymentsTopic == "" {
		return nil, errors.New("payments topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(orderRoutes)+len(paymentRoutes))}
	reg.add(cfg.OrdersTopic, orderRoutes)
	reg.add(cfg.PaymentsTopic, paymentRoutes)
	return reg, nil
}

func (r *EventRegistry) add(topic string, routes []route) {
	for _, rt := range routes {
		r.entries[rt.event] = EventDescriptor{
			EventType:      rt.event,
			AggregateType:  rt.aggregate,
			Topic:          topic,
			PayloadFactory: rt.payload,
		}
	}
}

// Descriptors lists every registered event.
func (r *EventRegistry) Descriptors() []EventDescriptor {
	out := make([]EventDescriptor, 0, len(r.entries))
	for _, desc := range r.entries {
		out = append(out, desc)
	}
	return out
}

// Resolve checks the row against its descriptor and decodes the typed payload. Every failure is
// permanent.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, Permanent(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, Permanent(fmt.Errorf("%s belongs to %s aggregates, row has %s", event.EventType, desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, Permanent(errors.New("missing aggregate_id"))
	}
	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, Permanent(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, Permanent(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
