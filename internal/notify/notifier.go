package notify

import (
	"context"

	"go.uber.org/zap"
)

// Email template kinds rendered by the notification collaborator.
const (
	TemplateBookingCreated           = "booking_created"
	TemplateBookingApproved          = "booking_approved"
	TemplateBookingRejected          = "booking_rejected"
	TemplateBookingConfirmed         = "booking_confirmed"
	TemplateBookingCancelled         = "booking_cancelled"
	TemplateBankTransferInstructions = "bank_transfer_instructions"
	TemplateCashPickupOwnerAlert     = "cash_pickup_owner_alert"
)

// Notifier is the notification collaborator. Delivery is fire-and-forget
// from the core's perspective; failures are logged, never propagated into
// request handling.
type Notifier interface {
	SendEmail(ctx context.Context, template, recipient string, data map[string]interface{}) error
}

// LogNotifier is the default Notifier; it records the notification instead
// of delivering it. Real delivery happens in the mailer service downstream.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendEmail implements Notifier.
func (n *LogNotifier) SendEmail(ctx context.Context, template, recipient string, data map[string]interface{}) error {
	n.logger.Info("notification email",
		zap.String("template", template),
		zap.String("recipient", recipient),
		zap.Any("data", data),
	)
	return nil
}
