package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/config"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxAttempts  = 10
	publishTimeout      = 15 * time.Second
	maxErrorBackoff     = 10 * time.Second
	jitterWindow        = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error) error
}

type deadLetterStore interface {
	DeadLetterTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topicPublisher returns the publisher for a topic, or nil when none is configured.
type topicPublisher func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          dbClient
	PubSub      pubSubClient
	Repository  outboxRepository
	Registry    eventResolver
	DeadLetters deadLetterStore
	Metrics     *metrics.OutboxMetrics
	Topics      topicPublisher
}

// Service relays committed outbox rows to Pub/Sub. Each row ends a batch published, scheduled for
// retry, or dead-lettered.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	pubsub      pubSubClient
	repo        outboxRepository
	registry    eventResolver
	deadLetters deadLetterStore
	metrics     *metrics.OutboxMetrics
	topics      topicPublisher
	batchSize   int
	maxAttempts int
	pace        *pacer
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DeadLetters == nil:
		return nil, errors.New("dead-letter store is required")
	}

	topics := params.Topics
	if topics == nil {
		topics = func(topic string) publisher {
			return wrapPublisher(params.PubSub.Publisher(topic))
		}
	}

	outboxCfg := params.Config.Outbox
	batch := outboxCfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := time.Duration(outboxCfg.PollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = defaultPollInterval
	}
	attempts := outboxCfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	return &Service{
		logg:        params.Logger,
		db:          params.DB,
		pubsub:      params.PubSub,
		repo:        params.Repository,
		registry:    params.Registry,
		deadLetters: params.DeadLetters,
		metrics:     params.Metrics,
		topics:      topics,
		batchSize:   batch,
		maxAttempts: attempts,
		pace:        newPacer(poll, maxErrorBackoff),
	}, nil
}

// Run drains the outbox until ctx is canceled. Full batches loop immediately; an empty batch waits
// one poll interval and a failed batch backs off exponentially.
func (s *Service) Run(ctx context.Context) error {
	deps := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	}
	for _, dep := range deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		handled, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = s.pace.failed()
		case handled == s.batchSize:
			s.pace.reset()
			continue
		default:
			wait = s.pace.idle()
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// processBatch locks the next batch of rows, relays each one and records its outcome in the same
// transaction. It returns how many rows it handled.
func (s *Service) processBatch(ctx context.Context) (int, error) {
	handled := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		for _, event := range events {
			if err := s.record(ctx, tx, event, s.relay(ctx, event)); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	return handled, err
}

type outcome struct {
	status string
	topic  string
	reason enums.OutboxDLQErrorReason
	err    error
	env    *outbox.PayloadEnvelope
}

func (s *Service) relay(ctx context.Context, event models.OutboxEvent) outcome {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return outcome{status: metrics.OutboxDeadLettered, reason: enums.OutboxDLQReasonNonRetryable, err: err}
	}
	res := outcome{topic: resolved.Descriptor.Topic, env: &resolved.Envelope}

	err = s.send(ctx, event, resolved)
	switch {
	case err == nil:
		res.status = metrics.OutboxPublished
	case registry.IsPermanent(err):
		res.status, res.reason, res.err = metrics.OutboxDeadLettered, enums.OutboxDLQReasonNonRetryable, err
	case event.AttemptCount+1 >= s.maxAttempts:
		res.status, res.reason = metrics.OutboxDeadLettered, enums.OutboxDLQReasonMaxAttempts
		res.err = fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, err)
	default:
		res.status, res.err = metrics.OutboxRetried, err
	}
	return res
}

func (s *Service) record(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, res outcome) error {
	logCtx := s.logg.WithFields(ctx, logFields(event, res))
	s.metrics.IncPublish(string(event.EventType), res.status)

	switch res.status {
	case metrics.OutboxPublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(logCtx, "outbox event published")
	case metrics.OutboxRetried:
		s.logg.Warn(logCtx, "outbox publish failed; will retry")
		if err := s.repo.MarkFailedTx(tx, event.ID, res.err); err != nil {
			return fmt.Errorf("mark failed %s: %w", event.ID, err)
		}
	default:
		s.logg.Warn(logCtx, "outbox event dead-lettered")
		if err := s.deadLetters.DeadLetterTx(tx, event, res.reason, res.err); err != nil {
			return fmt.Errorf("dead-letter %s: %w", event.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, event.ID, res.err); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
	}
	return nil
}

func (s *Service) send(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.topics(topic)
	if pub == nil {
		return registry.Permanent(fmt.Errorf("no publisher for topic %s", topic))
	}

	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	orderingKey := event.AggregateID.String()
	result := pub.Publish(sendCtx, &gcppubsub.Message{
		Data:        event.Payload,
		Attributes:  messageAttributes(event, resolved.Envelope),
		OrderingKey: orderingKey,
	})
	if result == nil {
		return registry.Permanent(fmt.Errorf("publisher for %s returned no result", topic))
	}
	if _, err := result.Get(sendCtx); err != nil {
		// A failed ordered publish pauses the key until resumed.
		pub.ResumePublish(orderingKey)
		return err
	}
	return nil
}

// messageAttributes lets subscribers route on event metadata without decoding the payload.
func messageAttributes(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]string {
	attrs := map[string]string{
		"event_id":       envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"schema_version": strconv.Itoa(envelope.Version),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
	}
	if envelope.Actor != nil {
		attrs["actor_id"] = envelope.Actor.UserID.String()
		if envelope.Actor.Role != "" {
			attrs["actor_role"] = envelope.Actor.Role
		}
	}
	return attrs
}

func logFields(event models.OutboxEvent, res outcome) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"outcome":        res.status,
	}
	if res.topic != "" {
		fields["topic"] = res.topic
	}
	if res.env != nil {
		fields["event_id"] = res.env.EventID
	}
	if res.reason != "" {
		fields["dlq_reason"] = res.reason
	}
	if res.err != nil {
		fields["error"] = res.err.Error()
	}
	return fields
}

// pacer spaces out polls: a fixed interval when idle, doubling up to max after failures.
type pacer struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
	rng     *rand.Rand
}

func newPacer(base, max time.Duration) *pacer {
	return &pacer{base: base, max: max, current: base, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *pacer) reset() { p.current = p.base }

func (p *pacer) idle() time.Duration {
	p.reset()
	return p.jitter(p.base)
}

func (p *pacer) failed() time.Duration {
	p.current *= 2
	if p.current > p.max {
		p.current = p.max
	}
	return p.jitter(p.current)
}

func (p *pacer) jitter(d time.Duration) time.Duration {
	return d + time.Duration(p.rng.Int63n(int64(jitterWindow)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func wrapPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{p}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.p.Publish(ctx, msg)
}

func (g gcpPublisher) ResumePublish(orderingKey string) {
	g.p.ResumePublish(orderingKey)
}
