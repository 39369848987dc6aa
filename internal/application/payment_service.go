package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/booking"
	paymentDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/payment"
	"github.com/DriveShare-Marketplace/service-rental/internal/domain/user"
	"github.com/DriveShare-Marketplace/service-rental/internal/events"
	"github.com/DriveShare-Marketplace/service-rental/internal/notify"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/kafka"
)

// BankAccount is the platform account surfaced in bank transfer instructions.
type BankAccount struct {
	BankName string
	IBAN     string
}

// ProcessPaymentRequest carries the method-specific input for initiating
// payment on an approved booking. The method itself was fixed at booking
// creation; these fields refine the handoff.
type ProcessPaymentRequest struct {
	// AccountLast4 is the payer's account tail for bank transfer matching.
	AccountLast4 string `json:"account_last4"`
	// WalletType selects the digital wallet flow (e.g. "paypal", "venmo").
	WalletType string `json:"wallet_type"`
	// Contact is the wallet account handle payment is requested from.
	Contact string `json:"contact"`
	// MeetingLocation and MeetingTime arrange the cash handoff.
	MeetingLocation string     `json:"meeting_location"`
	MeetingTime     *time.Time `json:"meeting_time"`
	Notes           string     `json:"notes"`
}

// PaymentResultDTO is the response of a payment initiation.
type PaymentResultDTO struct {
	BookingID     uuid.UUID       `json:"booking_id"`
	Method        string          `json:"method"`
	PaymentStatus string          `json:"payment_status"`
	Reference     string          `json:"reference,omitempty"`
	IntentID      string          `json:"intent_id,omitempty"`
	ClientSecret  string          `json:"client_secret,omitempty"`
	Instructions  string          `json:"instructions,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
}

// PaymentService orchestrates payment initiation, confirmation, webhooks and
// offline settlement. Each payment method has its own strategy; all of them
// end in the same payment sub-record on the booking.
type PaymentService struct {
	repo     bookingDomain.BookingRepository
	users    user.UserRepository
	provider paymentDomain.Provider
	notifier notify.Notifier
	producer EventPublisher
	bank     BankAccount
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	repo bookingDomain.BookingRepository,
	users user.UserRepository,
	provider paymentDomain.Provider,
	notifier notify.Notifier,
	producer EventPublisher,
	bank BankAccount,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		repo:     repo,
		users:    users,
		provider: provider,
		notifier: notifier,
		producer: producer,
		bank:     bank,
		logger:   logger,
	}
}

// ProcessPayment initiates payment on an approved booking, dispatching to the
// strategy for the booking's payment method.
func (s *PaymentService) ProcessPayment(ctx context.Context, bookingID, callerID uuid.UUID, req ProcessPaymentRequest) (*PaymentResultDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.RenterID() != callerID {
		return nil, domain.NewNotFoundError("Booking", bookingID.String())
	}
	if bk.Status() != bookingDomain.StatusApproved {
		return nil, domain.NewInvalidStateError(string(bk.Status()), string(bookingDomain.StatusApproved))
	}
	if bk.Payment().Status == bookingDomain.PaymentStatusPaid {
		return nil, domain.NewConflictError("booking is already paid")
	}

	var result *PaymentResultDTO
	switch bk.Payment().Method {
	case bookingDomain.MethodCard:
		result, err = s.processCard(ctx, bk)
	case bookingDomain.MethodBankTransfer:
		result, err = s.processBankTransfer(ctx, bk, req)
	case bookingDomain.MethodDigitalWallet:
		result, err = s.processWallet(ctx, bk, req)
	case bookingDomain.MethodCash:
		result, err = s.processCash(ctx, bk, req)
	default:
		return nil, domain.NewUnsupportedPaymentMethodError(string(bk.Payment().Method))
	}
	if err != nil {
		if _, ok := domain.AsAppError(err); ok {
			return nil, err
		}
		return nil, domain.NewPaymentProcessingError(err)
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.publishPaymentEvent(ctx, events.PaymentInitiated, bk, result.Reference)
	return result, nil
}

// processCard registers a provider payment intent and stores its handle. The
// booking confirms later, when the provider reports success.
func (s *PaymentService) processCard(ctx context.Context, bk *bookingDomain.Booking) (*PaymentResultDTO, error) {
	intent, err := s.provider.CreateIntent(ctx, bk.TotalPayableCents(), bk.Currency(), map[string]string{
		"booking_id": bk.ID().String(),
		"renter_id":  bk.RenterID().String(),
	})
	if err != nil {
		return nil, err
	}

	details, err := json.Marshal(bookingDomain.CardDetails{IntentID: intent.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal card details: %w", err)
	}
	if err := bk.SetPaymentInitiated(bookingDomain.PaymentStatusPending, intent.ID, "", details); err != nil {
		return nil, err
	}

	return &PaymentResultDTO{
		BookingID:     bk.ID(),
		Method:        string(bookingDomain.MethodCard),
		PaymentStatus: string(bk.Payment().Status),
		IntentID:      intent.ID,
		ClientSecret:  intent.ClientSecret,
		Details:       details,
	}, nil
}

// processBankTransfer issues a tracking reference and emails the transfer
// instructions. Only the payer account tail is persisted.
func (s *PaymentService) processBankTransfer(ctx context.Context, bk *bookingDomain.Booking, req ProcessPaymentRequest) (*PaymentResultDTO, error) {
	reference := newPaymentReference("BT")

	details, err := json.Marshal(bookingDomain.BankTransferDetails{
		Reference:    reference,
		BankName:     s.bank.BankName,
		IBAN:         s.bank.IBAN,
		AccountLast4: req.AccountLast4,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bank transfer details: %w", err)
	}
	if err := bk.SetPaymentInitiated(bookingDomain.PaymentStatusPending, "", reference, details); err != nil {
		return nil, err
	}

	if renter, err := s.users.FindByID(ctx, bk.RenterID()); err != nil {
		s.logger.Warn("skipping bank transfer instructions, renter lookup failed",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
	} else {
		s.sendNotification(ctx, notify.TemplateBankTransferInstructions, renter.Email(), map[string]interface{}{
			"booking_id": bk.ID().String(),
			"reference":  reference,
			"bank_name":  s.bank.BankName,
			"iban":       s.bank.IBAN,
			"amount":     bk.TotalPayableCents(),
			"currency":   bk.Currency(),
		})
	}

	return &PaymentResultDTO{
		BookingID:     bk.ID(),
		Method:        string(bookingDomain.MethodBankTransfer),
		PaymentStatus: string(bk.Payment().Status),
		Reference:     reference,
		Instructions:  fmt.Sprintf("Transfer %d %s to %s (%s) quoting reference %s", bk.TotalPayableCents(), bk.Currency(), s.bank.BankName, s.bank.IBAN, reference),
		Details:       details,
	}, nil
}

// processWallet issues a reference and the wallet-specific handoff
// instructions for the renter to complete out of band.
func (s *PaymentService) processWallet(ctx context.Context, bk *bookingDomain.Booking, req ProcessPaymentRequest) (*PaymentResultDTO, error) {
	walletType := strings.ToLower(strings.TrimSpace(req.WalletType))
	if walletType == "" {
		return nil, domain.NewValidationError("wallet_type is required for digital wallet payments")
	}

	reference := newPaymentReference("DW")
	instructions := walletInstructions(walletType, reference)

	details, err := json.Marshal(bookingDomain.WalletDetails{
		Reference:    reference,
		WalletType:   walletType,
		Contact:      req.Contact,
		Instructions: instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wallet details: %w", err)
	}
	if err := bk.SetPaymentInitiated(bookingDomain.PaymentStatusPending, "", reference, details); err != nil {
		return nil, err
	}

	return &PaymentResultDTO{
		BookingID:     bk.ID(),
		Method:        string(bookingDomain.MethodDigitalWallet),
		PaymentStatus: string(bk.Payment().Status),
		Reference:     reference,
		Instructions:  instructions,
		Details:       details,
	}, nil
}

// processCash records the pickup meeting arrangement, parks the payment in
// pending_pickup and alerts the owner to collect at handoff.
func (s *PaymentService) processCash(ctx context.Context, bk *bookingDomain.Booking, req ProcessPaymentRequest) (*PaymentResultDTO, error) {
	reference := newPaymentReference("CP")

	details, err := json.Marshal(bookingDomain.CashDetails{
		Reference:       reference,
		MeetingLocation: req.MeetingLocation,
		MeetingTime:     req.MeetingTime,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cash details: %w", err)
	}
	if err := bk.SetPaymentInitiated(bookingDomain.PaymentStatusPendingPickup, "", reference, details); err != nil {
		return nil, err
	}

	if owner, err := s.users.FindByID(ctx, bk.CarOwnerID()); err != nil {
		s.logger.Warn("skipping cash pickup alert, owner lookup failed",
			zap.String("booking_id", bk.ID().String()),
			zap.Error(err),
		)
	} else {
		s.sendNotification(ctx, notify.TemplateCashPickupOwnerAlert, owner.Email(), map[string]interface{}{
			"booking_id":       bk.ID().String(),
			"reference":        reference,
			"amount":           bk.TotalPayableCents(),
			"currency":         bk.Currency(),
			"meeting_location": req.MeetingLocation,
		})
	}

	return &PaymentResultDTO{
		BookingID:     bk.ID(),
		Method:        string(bookingDomain.MethodCash),
		PaymentStatus: string(bk.Payment().Status),
		Reference:     reference,
		Instructions:  "Pay the owner in cash at vehicle pickup. Bring the exact amount.",
		Details:       details,
	}, nil
}

// ConfirmPayment re-verifies a card payment with the provider and, on
// success, confirms the booking. Client assertions alone never confirm.
func (s *PaymentService) ConfirmPayment(ctx context.Context, bookingID, callerID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.RenterID() != callerID {
		return nil, domain.NewNotFoundError("Booking", bookingID.String())
	}
	if bk.Payment().IntentID == "" {
		return nil, domain.NewValidationError("no payment intent recorded for this booking")
	}

	intent, err := s.provider.RetrieveIntent(ctx, bk.Payment().IntentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != paymentDomain.IntentStatusSucceeded {
		return nil, domain.NewPaymentNotCompletedError(intent.Status)
	}

	changed, err := bk.ApplyPaymentSuccess(intent.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if changed {
		bk.IncrementVersion()
		if err := s.repo.Update(ctx, bk); err != nil {
			return nil, err
		}
		s.publishPaymentEvent(ctx, events.PaymentPaid, bk, intent.ID)
		s.publishBookingConfirmed(ctx, bk)
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// HandleWebhook processes an authenticated provider notification. Unknown
// intents and duplicate deliveries are acknowledged without effect; only a
// bad signature is an error.
func (s *PaymentService) HandleWebhook(ctx context.Context, rawPayload []byte, signature string) error {
	event, err := s.provider.VerifyWebhookSignature(rawPayload, signature)
	if err != nil {
		return domain.NewInvalidWebhookSignatureError()
	}

	bk, err := s.repo.FindByIntentID(ctx, event.IntentID)
	if err != nil {
		// The intent may belong to another service or a deleted booking.
		// Acknowledge so the provider stops retrying.
		s.logger.Warn("webhook for unknown payment intent",
			zap.String("event_id", event.ID),
			zap.String("intent_id", event.IntentID),
		)
		return nil
	}

	switch event.Type {
	case paymentDomain.EventIntentSucceeded:
		changed, err := bk.ApplyPaymentSuccess(transactionOrIntent(event), time.Now().UTC())
		if err != nil {
			s.logger.Error("webhook success not applicable",
				zap.String("booking_id", bk.ID().String()),
				zap.String("status", string(bk.Status())),
				zap.Error(err),
			)
			return nil
		}
		if !changed {
			return nil
		}
		bk.IncrementVersion()
		if err := s.repo.Update(ctx, bk); err != nil {
			return err
		}
		s.publishPaymentEvent(ctx, events.PaymentPaid, bk, event.IntentID)
		s.publishBookingConfirmed(ctx, bk)

	case paymentDomain.EventIntentFailed:
		if !bk.ApplyPaymentFailure(transactionOrIntent(event)) {
			return nil
		}
		bk.IncrementVersion()
		if err := s.repo.Update(ctx, bk); err != nil {
			return err
		}
		s.publishPaymentEvent(ctx, events.PaymentFailed, bk, event.IntentID)

	default:
		s.logger.Debug("ignoring webhook event type", zap.String("type", event.Type))
	}
	return nil
}

// SettleOfflinePayment marks a bank transfer, wallet or cash payment as
// received (admin). Card payments settle only through the provider.
func (s *PaymentService) SettleOfflinePayment(ctx context.Context, bookingID uuid.UUID, transactionID string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.Payment().Method == bookingDomain.MethodCard {
		return nil, domain.NewValidationError("card payments settle through the payment provider")
	}

	if transactionID == "" {
		transactionID = bk.Payment().ExternalTransactionID
	}
	changed, err := bk.ApplyPaymentSuccess(transactionID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if changed {
		bk.IncrementVersion()
		if err := s.repo.Update(ctx, bk); err != nil {
			return nil, err
		}
		s.publishPaymentEvent(ctx, events.PaymentPaid, bk, transactionID)
		s.publishBookingConfirmed(ctx, bk)
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// --- Helpers ---

func newPaymentReference(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return fmt.Sprintf("%s-%s", prefix, id[:12])
}

func walletInstructions(walletType, reference string) string {
	switch walletType {
	case "paypal":
		return fmt.Sprintf("A PayPal money request referencing %s will be sent to your account. Approve it to complete payment.", reference)
	case "venmo":
		return fmt.Sprintf("A Venmo charge referencing %s will be sent to your handle. Accept it to complete payment.", reference)
	default:
		return fmt.Sprintf("Complete the wallet payment quoting reference %s. Payment is verified manually.", reference)
	}
}

func transactionOrIntent(event *paymentDomain.Event) string {
	if event.TransactionID != "" {
		return event.TransactionID
	}
	return event.IntentID
}

func (s *PaymentService) sendNotification(ctx context.Context, template, recipient string, data map[string]interface{}) {
	if err := s.notifier.SendEmail(ctx, template, recipient, data); err != nil {
		s.logger.Error("failed to send payment notification",
			zap.String("template", template),
			zap.Error(err),
		)
	}
}

func (s *PaymentService) publishBookingConfirmed(ctx context.Context, bk *bookingDomain.Booking) {
	evt := events.BookingEvent{
		BookingID:         bk.ID(),
		RenterID:          bk.RenterID(),
		CarID:             bk.CarID(),
		CarOwnerID:        bk.CarOwnerID(),
		Status:            string(bk.Status()),
		StartDate:         bk.StartDate(),
		EndDate:           bk.EndDate(),
		TotalPayableCents: bk.TotalPayableCents(),
		Currency:          bk.Currency(),
		OccurredAt:        time.Now().UTC(),
	}
	s.publish(ctx, events.TopicBookingEvents, events.BookingConfirmed, evt)
}

func (s *PaymentService) publishPaymentEvent(ctx context.Context, eventType string, bk *bookingDomain.Booking, reference string) {
	evt := events.PaymentEvent{
		BookingID:   bk.ID(),
		RenterID:    bk.RenterID(),
		CarOwnerID:  bk.CarOwnerID(),
		Method:      string(bk.Payment().Method),
		Status:      string(bk.Payment().Status),
		Reference:   reference,
		AmountCents: bk.TotalPayableCents(),
		Currency:    bk.Currency(),
		OccurredAt:  time.Now().UTC(),
	}
	s.publish(ctx, events.TopicPaymentEvents, eventType, evt)
}

func (s *PaymentService) publish(ctx context.Context, topic, eventType string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent("service-rental", eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	if err := s.producer.PublishEvent(ctx, topic, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
