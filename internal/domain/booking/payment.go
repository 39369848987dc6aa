package booking

import (
	"encoding/json"
	"fmt"
	"time"
)

// PaymentMethod identifies how the renter pays for a booking.
type PaymentMethod string

const (
	MethodCard          PaymentMethod = "card"
	MethodBankTransfer  PaymentMethod = "bank_transfer"
	MethodDigitalWallet PaymentMethod = "digital_wallet"
	MethodCash          PaymentMethod = "cash"
)

// IsValid returns true if the payment method is recognized.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCard, MethodBankTransfer, MethodDigitalWallet, MethodCash:
		return true
	}
	return false
}

// ParsePaymentMethod converts a string to a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid payment method: %s", s)
	}
	return m, nil
}

// PaymentStatus tracks how far a booking's payment has progressed.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPendingPickup marks cash bookings where payment is
	// deferred to the physical handoff, distinct from generic pending.
	PaymentStatusPendingPickup PaymentStatus = "pending_pickup"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusPartial       PaymentStatus = "partial"
)

// IsValid returns true if the payment status is recognized.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPendingPickup, PaymentStatusPaid,
		PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusPartial:
		return true
	}
	return false
}

// PaymentInfo is the payment sub-record owned by a booking. Details carries
// the method-specific value object serialized as JSON.
type PaymentInfo struct {
	Method                PaymentMethod   `json:"method"`
	Status                PaymentStatus   `json:"status"`
	IntentID              string          `json:"intent_id,omitempty"`
	ExternalTransactionID string          `json:"external_transaction_id,omitempty"`
	Details               json.RawMessage `json:"details,omitempty"`
	PaidAt                *time.Time      `json:"paid_at,omitempty"`
}

// CardDetails is the provider payment-intent record for card payments.
type CardDetails struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// BankTransferDetails holds the transfer instructions shown to the renter.
// Only the last four digits of the payer account are ever persisted.
type BankTransferDetails struct {
	Reference    string `json:"reference"`
	BankName     string `json:"bank_name"`
	IBAN         string `json:"iban"`
	AccountLast4 string `json:"account_last4,omitempty"`
}

// WalletDetails holds the digital wallet handoff record.
type WalletDetails struct {
	Reference    string `json:"reference"`
	WalletType   string `json:"wallet_type"`
	Contact      string `json:"contact"`
	Instructions string `json:"instructions"`
}

// CashDetails holds the cash-on-pickup meeting arrangement.
type CashDetails struct {
	Reference       string     `json:"reference"`
	MeetingLocation string     `json:"meeting_location"`
	MeetingTime     *time.Time `json:"meeting_time,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}
