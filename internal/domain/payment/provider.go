package payment

import "context"

// Intent statuses reported by the payment provider.
const (
	IntentStatusRequiresPayment = "requires_payment_method"
	IntentStatusProcessing      = "processing"
	IntentStatusSucceeded       = "succeeded"
	IntentStatusCancelled       = "cancelled"
)

// Webhook event types the service reacts to. Everything else is
// acknowledged and ignored.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// Intent is a provider-side object representing an authorized or captured
// payment. Amounts are in minor currency units.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Status       string `json:"status"`
	AmountCents  int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Event is an authenticated webhook notification from the provider.
type Event struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	IntentID      string `json:"intent_id"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Provider is the payment provider collaborator. Implementations must never
// report success based on client assertions; RetrieveIntent re-verifies with
// the provider.
type Provider interface {
	// CreateIntent registers a payment intent for the amount in minor
	// currency units, attaching booking/renter metadata.
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)

	// RetrieveIntent fetches the current provider-side state of an intent.
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)

	// VerifyWebhookSignature authenticates a raw webhook payload against
	// the shared secret and decodes the event. Unsigned or tampered
	// payloads must be rejected before any processing.
	VerifyWebhookSignature(rawPayload []byte, signature string) (*Event, error)
}
