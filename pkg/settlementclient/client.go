/**
 * @description
 * This package provides the client for the external settlement API: the
 * collaborator that actually moves value out of custody. The custody engine
 * treats the far side as hostile and opaque; this client only reports whether
 * the call succeeded, it never hides a failure. It also exposes the
 * token-backed transfer primitives (transfer / transferFrom) consumed as
 * black-box, all-or-nothing operations for the funded-deposit variant.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - internal/domain: For the transfer outcome model.
 */
package settlementclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/transfa/custody-service/internal/domain"
)

// Client is a client for the settlement API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new settlement API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendRequest is the payload for an outbound settlement call.
type SendRequest struct {
	Target string `json:"target"`
	Amount int64  `json:"amount"`
	Data   []byte `json:"data,omitempty"`
}

// SendResponse is the expected response from the settlement endpoint.
type SendResponse struct {
	Succeeded bool   `json:"succeeded"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// TokenTransferRequest is the payload for the token-backed primitives.
type TokenTransferRequest struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Amount int64  `json:"amount"`
}

// ErrorResponse represents an error from the settlement API.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("settlement api error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown settlement api error"
}

// Send performs the external transfer call. The returned outcome reflects
// exactly what the settlement API reported; transport errors are returned as
// errors so the caller can distinguish "refused" from "unreachable".
func (c *Client) Send(ctx context.Context, target string, amount int64, data []byte) (domain.TransferOutcome, error) {
	outcome := domain.TransferOutcome{AmountAttempted: amount}

	var resp SendResponse
	if err := c.post(ctx, "/v1/transfers", SendRequest{Target: target, Amount: amount, Data: data}, &resp); err != nil {
		return outcome, err
	}

	outcome.Succeeded = resp.Succeeded
	return outcome, nil
}

// TransferFrom pulls value from a principal into custody (token-backed
// deposits). A non-nil error means no value moved.
func (c *Client) TransferFrom(ctx context.Context, from string, amount int64) error {
	var resp SendResponse
	if err := c.post(ctx, "/v1/token/transfer-from", TokenTransferRequest{From: from, Amount: amount}, &resp); err != nil {
		return err
	}
	if !resp.Succeeded {
		return fmt.Errorf("token transferFrom refused: %s", resp.Reason)
	}
	return nil
}

// Transfer pushes token value from custody to a principal.
func (c *Client) Transfer(ctx context.Context, to string, amount int64) error {
	var resp SendResponse
	if err := c.post(ctx, "/v1/token/transfer", TokenTransferRequest{To: to, Amount: amount}, &resp); err != nil {
		return err
	}
	if !resp.Succeeded {
		return fmt.Errorf("token transfer refused: %s", resp.Reason)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build settlement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("settlement request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		raw, _ := io.ReadAll(resp.Body)
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr == nil && len(apiErr.Errors) > 0 {
			return &apiErr
		}
		return fmt.Errorf("settlement api returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode settlement response: %w", err)
	}
	return nil
}
