// Package invoicing pushes booked leads to the external invoicing system as
// draft invoices. A nil client is a valid no-op, used when no invoicing
// endpoint is configured.
package invoicing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"venue_crm_backend/platform/config"
	"venue_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type draftRequest struct {
	Reference string     `json:"reference"`
	Customer  string     `json:"customer"`
	EventDate *time.Time `json:"eventDate,omitempty"`
}

type draftResponse struct {
	ID string `json:"id"`
}

func NewClient(cfg config.InvoicingConfig, log *logger.Logger) *Client {
	if cfg.GetInvoicingURL() == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetInvoicingURL(), "/"),
		apiKey:  cfg.GetInvoicingAPIKey(),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// PushBooking creates a draft invoice for a booked lead and returns the
// external invoice id.
func (c *Client) PushBooking(ctx context.Context, leadID uuid.UUID, leadName string, eventDate *time.Time) (string, error) {
	if c == nil {
		return "", nil
	}

	body, err := json.Marshal(draftRequest{
		Reference: leadID.String(),
		Customer:  leadName,
		EventDate: eventDate,
	})
	if err != nil {
		return "", fmt.Errorf("marshal invoice payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoices/drafts", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoicing request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("invoicing service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed draftResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode invoicing response: %w", err)
	}

	c.log.Info("draft invoice created", "leadId", leadID, "invoiceId", parsed.ID)
	return parsed.ID, nil
}
