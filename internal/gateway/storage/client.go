package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// Client is the HTTP implementation of the object storage collaborator used
// for listing images. The upload pipeline itself lives behind the storage
// API; this client only moves references around.
type Client struct {
	baseURL    string
	apiKey     string
	bucket     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an object storage client.
func NewClient(baseURL, apiKey, bucket string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// UploadFiles stores base64-encoded files and returns their public URLs.
func (c *Client) UploadFiles(ctx context.Context, files [][]byte) ([]string, error) {
	body := map[string]interface{}{
		"bucket": c.bucket,
		"files":  files,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/objects", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalServiceError("object storage", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.NewExternalServiceError("object storage",
			fmt.Errorf("upload returned %s", resp.Status))
	}

	var out struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.NewExternalServiceError("object storage", err)
	}
	return out.URLs, nil
}

// DeleteFiles removes previously uploaded objects by URL. Used to roll back
// uploads when the enclosing save fails.
func (c *Client) DeleteFiles(ctx context.Context, urls []string) error {
	body := map[string]interface{}{
		"bucket": c.bucket,
		"urls":   urls,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal delete request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/objects", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewExternalServiceError("object storage", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.NewExternalServiceError("object storage",
			fmt.Errorf("delete returned %s", resp.Status))
	}

	c.logger.Debug("storage objects deleted", zap.Int("count", len(urls)))
	return nil
}
