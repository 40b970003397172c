package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/jobs"
)

type eventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// RedisPublisher delivers notification payloads over a Redis channel
// consumed by the notification collaborator.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher wraps a Redis client for event publishing.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish sends the payload on the given channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if p.client == nil {
		return fmt.Errorf("redis client not configured")
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// NotificationService dispatches booking lifecycle events to the
// notification collaborator. Dispatch is fire-and-forget: a booking's
// state never depends on whether its notification succeeded.
type NotificationService struct {
	publisher eventPublisher
	queue     jobEnqueuer
	channel   string
	logger    *zap.Logger
	enabled   bool
}

// NewNotificationService constructs the dispatcher.
func NewNotificationService(publisher eventPublisher, channel string, logger *zap.Logger, enabled bool) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = "booking.events"
	}
	return &NotificationService{publisher: publisher, channel: channel, logger: logger, enabled: enabled}
}

// AttachQueue wires the worker queue used for asynchronous delivery.
func (s *NotificationService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Emit queues the event for delivery. Enqueue failures are logged and
// swallowed.
func (s *NotificationService) Emit(event models.NotificationEvent) {
	if !s.enabled || s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: string(event.Type), Payload: event}); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", string(event.Type)),
			zap.String("booking_id", event.BookingID),
			zap.Error(err))
	}
}

// Deliver is the queue handler. It publishes the event payload; errors
// propagate so the queue can retry, but they never reach the caller
// that triggered the booking change.
func (s *NotificationService) Deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.NotificationEvent)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal notification", zap.String("booking_id", event.BookingID), zap.Error(err))
		return nil
	}

	if err := s.publisher.Publish(ctx, s.channel, payload); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("type", string(event.Type)),
			zap.String("booking_id", event.BookingID),
			zap.Error(err))
		return err
	}
	return nil
}
