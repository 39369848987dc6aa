package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	paymentDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/payment"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// Client is the HTTP implementation of the payment provider collaborator.
// It talks to an intent-based payments API and authenticates webhooks with
// an HMAC-SHA256 signature over the raw payload.
type Client struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewClient creates a payment provider client.
func NewClient(baseURL, apiKey, webhookSecret string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:       baseURL,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
	}
}

// CreateIntent registers a payment intent with the provider.
func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*paymentDomain.Intent, error) {
	body := map[string]interface{}{
		"amount":   amountCents,
		"currency": currency,
		"metadata": metadata,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal intent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to build intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalServiceError("payment provider", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.NewExternalServiceError("payment provider",
			fmt.Errorf("create intent returned %s", resp.Status))
	}

	var intent paymentDomain.Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, domain.NewExternalServiceError("payment provider", err)
	}
	if intent.ID == "" {
		return nil, domain.NewExternalServiceError("payment provider",
			fmt.Errorf("empty intent id in response"))
	}

	c.logger.Debug("payment intent created", zap.String("intent_id", intent.ID))
	return &intent, nil
}

// RetrieveIntent fetches the provider-side state of an intent.
func (c *Client) RetrieveIntent(ctx context.Context, id string) (*paymentDomain.Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payment_intents/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalServiceError("payment provider", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("PaymentIntent", id)
	}
	if resp.StatusCode >= 300 {
		return nil, domain.NewExternalServiceError("payment provider",
			fmt.Errorf("retrieve intent returned %s", resp.Status))
	}

	var intent paymentDomain.Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, domain.NewExternalServiceError("payment provider", err)
	}
	return &intent, nil
}

// VerifyWebhookSignature authenticates the raw payload and decodes the event.
func (c *Client) VerifyWebhookSignature(rawPayload []byte, signature string) (*paymentDomain.Event, error) {
	if signature == "" {
		return nil, domain.NewInvalidWebhookSignatureError()
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(rawPayload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, domain.NewInvalidWebhookSignatureError()
	}

	var event paymentDomain.Event
	if err := json.Unmarshal(rawPayload, &event); err != nil {
		return nil, domain.NewInvalidWebhookSignatureError()
	}
	return &event, nil
}
