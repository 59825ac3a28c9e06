// Package allocation is the client for the downstream resource
// allocation service. It is invoked only for verified alerts and its
// failures never abort verification.
package allocation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
)

// Client is a client for the allocation service API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new allocation client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// allocationResponse is the acknowledgment from the allocation service.
type allocationResponse struct {
	Accepted     bool   `json:"accepted"`
	AllocationID string `json:"allocation_id"`
	Message      string `json:"message"`
}

// Allocate requests resource dispatch for a verified alert.
func (c *Client) Allocate(ctx context.Context, req models.AllocationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal allocation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/allocations", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create allocation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("allocation service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("allocation service returned %d: %s", resp.StatusCode, payload)
	}

	var ack allocationResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("decode allocation response: %w", err)
	}
	if !ack.Accepted {
		return fmt.Errorf("allocation rejected: %s", ack.Message)
	}

	c.logger.Info("Allocation accepted",
		zap.String("alert_id", req.AlertID),
		zap.String("allocation_id", ack.AllocationID))
	return nil
}
