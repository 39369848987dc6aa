package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/DriveShare-Marketplace/service-rental/internal/domain/user"
	"github.com/DriveShare-Marketplace/service-rental/internal/notify"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/kafka"
)

// templatesByEventType maps booking event types to the email template sent
// to the renter. Owner-facing mail for these events is handled by the owner
// dashboard digest, not per-event email.
var templatesByEventType = map[string]string{
	BookingCreated:   notify.TemplateBookingCreated,
	BookingApproved:  notify.TemplateBookingApproved,
	BookingRejected:  notify.TemplateBookingRejected,
	BookingConfirmed: notify.TemplateBookingConfirmed,
	BookingCancelled: notify.TemplateBookingCancelled,
}

// NotificationConsumer fans booking events out to the notification
// collaborator off the request path.
type NotificationConsumer struct {
	consumer *kafka.Consumer
	users    user.UserRepository
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewNotificationConsumer creates a NotificationConsumer for booking.events.
func NewNotificationConsumer(
	brokers []string,
	groupID string,
	users user.UserRepository,
	notifier notify.Notifier,
	logger *zap.Logger,
) *NotificationConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicBookingEvents, logger)
	return &NotificationConsumer{
		consumer: consumer,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// Start begins consuming booking events. This blocks until the context is cancelled.
func (c *NotificationConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *NotificationConsumer) Close() error {
	return c.consumer.Close()
}

func (c *NotificationConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from booking topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	template, ok := templatesByEventType[cloudEvent.Type]
	if !ok {
		c.logger.Debug("ignoring unhandled booking event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}

	var evt BookingEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse booking event data", zap.Error(err))
		return nil
	}

	renter, err := c.users.FindByID(ctx, evt.RenterID)
	if err != nil {
		c.logger.Warn("skipping notification, renter lookup failed",
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return nil
	}

	data := map[string]interface{}{
		"booking_id":          evt.BookingID.String(),
		"status":              evt.Status,
		"start_date":          evt.StartDate,
		"end_date":            evt.EndDate,
		"total_payable_cents": evt.TotalPayableCents,
		"currency":            evt.Currency,
	}
	if err := c.notifier.SendEmail(ctx, template, renter.Email(), data); err != nil {
		c.logger.Error("failed to send booking notification",
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
	}
	return nil
}
