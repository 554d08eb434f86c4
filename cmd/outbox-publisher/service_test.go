package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/config"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/outbox/payloads"
	"github.com/naijamall/naijamall-backend/pkg/outbox/registry"
)

func TestProcessBatchRetriesOnlyTheFailedRow(t *testing.T) {
	first := orderEvent(t, 0)
	second := orderEvent(t, 0)
	store := &fakeStore{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{errs: []error{errors.New("deadline exceeded"), nil}}
	svc := newTestService(t, store, pub, &fakeResolver{topic: "orders-topic"}, config.OutboxConfig{BatchSize: 2, MaxAttempts: 5})

	handled, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if handled != 2 {
		t.Fatalf("expected 2 rows handled, got %d", handled)
	}
	if len(store.failed) != 1 || store.failed[0] != first.ID {
		t.Fatalf("expected first row marked failed, got %v", store.failed)
	}
	if len(store.published) != 1 || store.published[0] != second.ID {
		t.Fatalf("expected second row published, got %v", store.published)
	}
	if len(store.deadLettered) != 0 {
		t.Fatalf("nothing should be dead-lettered yet")
	}
	if len(pub.resumed) != 1 || pub.resumed[0] != first.AggregateID.String() {
		t.Fatalf("expected ordering key of failed row resumed, got %v", pub.resumed)
	}
	for i, msg := range pub.messages {
		if msg.OrderingKey == "" {
			t.Fatalf("message %d has no ordering key", i)
		}
	}
}

func TestProcessBatchDeadLettersUnresolvableRows(t *testing.T) {
	event := orderEvent(t, 0)
	store := &fakeStore{events: []models.OutboxEvent{event}}
	resolver := &fakeResolver{err: registry.Permanent(errors.New("aggregate mismatch"))}
	pub := &fakePublisher{}
	svc := newTestService(t, store, pub, resolver, config.OutboxConfig{})

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(pub.messages) != 0 {
		t.Fatalf("unresolvable row must not be published")
	}
	assertDeadLettered(t, store, event.ID, enums.OutboxDLQReasonNonRetryable)
}

func TestProcessBatchDeadLettersWhenAttemptsRunOut(t *testing.T) {
	event := orderEvent(t, 2)
	store := &fakeStore{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{errs: []error{errors.New("unavailable")}}
	svc := newTestService(t, store, pub, &fakeResolver{topic: "orders-topic"}, config.OutboxConfig{MaxAttempts: 3})

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	assertDeadLettered(t, store, event.ID, enums.OutboxDLQReasonMaxAttempts)
	if !strings.Contains(store.causes[0].Error(), "gave up after 3 attempts") {
		t.Fatalf("unexpected cause %v", store.causes[0])
	}
}

func TestProcessBatchDeadLettersMissingTopic(t *testing.T) {
	event := orderEvent(t, 0)
	store := &fakeStore{events: []models.OutboxEvent{event}}
	svc := newTestService(t, store, nil, &fakeResolver{topic: "unknown-topic"}, config.OutboxConfig{})

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	assertDeadLettered(t, store, event.ID, enums.OutboxDLQReasonNonRetryable)
}

func TestProcessBatchCountsOutcomes(t *testing.T) {
	store := &fakeStore{events: []models.OutboxEvent{orderEvent(t, 0), orderEvent(t, 0)}}
	pub := &fakePublisher{errs: []error{nil, errors.New("transient")}}
	reg := prometheus.NewRegistry()
	svc := newTestService(t, store, pub, &fakeResolver{topic: "orders-topic"}, config.OutboxConfig{})
	svc.metrics = metrics.NewOutboxMetrics(reg)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	outcomes := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" {
					outcomes[label.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	if outcomes[metrics.OutboxPublished] != 1 || outcomes[metrics.OutboxRetried] != 1 {
		t.Fatalf("unexpected outcomes %v", outcomes)
	}
}

func TestSendSetsRoutingAttributes(t *testing.T) {
	buyerID := uuid.New()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPaymentHeld,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       envelopeJSON(t),
	}
	resolved := &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: "payments-topic", AggregateType: enums.AggregatePayment},
		Envelope: outbox.PayloadEnvelope{
			Version:    1,
			EventID:    event.ID.String(),
			OccurredAt: time.Now(),
			Actor:      &outbox.ActorRef{UserID: buyerID, Role: "buyer"},
		},
		Payload: &payloads.PaymentEvent{},
	}
	pub := &fakePublisher{}
	svc := newTestService(t, &fakeStore{}, pub, &fakeResolver{}, config.OutboxConfig{})

	if err := svc.send(context.Background(), event, resolved); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.messages))
	}
	attrs := pub.messages[0].Attributes
	if attrs["event_type"] != "payment_held" || attrs["aggregate_type"] != "payment" {
		t.Fatalf("unexpected routing attributes: %v", attrs)
	}
	if attrs["actor_id"] != buyerID.String() || attrs["actor_role"] != "buyer" {
		t.Fatalf("actor attributes missing: %v", attrs)
	}
	if attrs["schema_version"] != "1" {
		t.Fatalf("unexpected schema version %q", attrs["schema_version"])
	}
}

func TestPacerBacksOffAndResets(t *testing.T) {
	p := newPacer(100*time.Millisecond, 350*time.Millisecond)
	for _, want := range []time.Duration{200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond} {
		got := p.failed()
		if got < want || got >= want+jitterWindow {
			t.Fatalf("expected backoff in [%s, %s), got %s", want, want+jitterWindow, got)
		}
	}
	if got := p.idle(); got >= 100*time.Millisecond+jitterWindow {
		t.Fatalf("idle wait should reset to the poll interval, got %s", got)
	}
	if got := p.failed(); got >= 200*time.Millisecond+jitterWindow {
		t.Fatalf("backoff should restart from the poll interval, got %s", got)
	}
}

func TestNewServiceRequiresDeadLetterStore(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         &fakeDB{},
		PubSub:     &fakePubSubClient{},
		Repository: &fakeStore{},
		Registry:   &fakeResolver{},
	})
	if err == nil {
		t.Fatal("expected error without dead-letter store")
	}
}

func newTestService(t *testing.T, store *fakeStore, pub *fakePublisher, resolver eventResolver, outboxCfg config.OutboxConfig) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:      &config.Config{Outbox: outboxCfg},
		Logger:      logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:          &fakeDB{},
		PubSub:      &fakePubSubClient{},
		Repository:  store,
		Registry:    resolver,
		DeadLetters: store,
		Topics: func(topic string) publisher {
			if pub == nil {
				return nil
			}
			return pub
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func assertDeadLettered(t *testing.T, store *fakeStore, id uuid.UUID, reason enums.OutboxDLQErrorReason) {
	t.Helper()
	if len(store.deadLettered) != 1 || store.deadLettered[0] != id {
		t.Fatalf("expected %s dead-lettered, got %v", id, store.deadLettered)
	}
	if store.reasons[0] != reason {
		t.Fatalf("expected reason %s, got %s", reason, store.reasons[0])
	}
	if len(store.terminal) != 1 || store.terminal[0] != id {
		t.Fatalf("expected %s marked terminal", id)
	}
	if len(store.published) != 0 || len(store.failed) != 0 {
		t.Fatalf("dead-lettered row must not be published or retried")
	}
}

func orderEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelopeJSON(t),
		AttemptCount:  attempts,
	}
}

func envelopeJSON(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

// fakeStore stands in for both the outbox repository and the dead-letter store.
type fakeStore struct {
	events       []models.OutboxEvent
	published    []uuid.UUID
	failed       []uuid.UUID
	terminal     []uuid.UUID
	deadLettered []uuid.UUID
	reasons      []enums.OutboxDLQErrorReason
	causes       []error
}

func (f *fakeStore) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.terminal = append(f.terminal, id)
	return nil
}

func (f *fakeStore) DeadLetterTx(_ *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	f.deadLettered = append(f.deadLettered, event.ID)
	f.reasons = append(f.reasons, reason)
	f.causes = append(f.causes, cause)
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakePubSubClient struct{}

func (fakePubSubClient) Ping(context.Context) error { return nil }

func (fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	errs     []error
	messages []*gcppubsub.Message
	resumed  []string
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	return fakeResult{err: err}
}

func (f *fakePublisher) ResumePublish(orderingKey string) {
	f.resumed = append(f.resumed, orderingKey)
}

type fakeResult struct{ err error }

func (r fakeResult) Get(context.Context) (string, error) { return "msg-1", r.err }

type fakeResolver struct {
	topic string
	err   error
}

func (f *fakeResolver) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: event.EventType, AggregateType: event.AggregateType, Topic: f.topic},
		Envelope:   outbox.PayloadEnvelope{Version: 1, EventID: event.ID.String(), OccurredAt: time.Now()},
		Payload:    &payloads.OrderCreatedEvent{},
	}, nil
}
