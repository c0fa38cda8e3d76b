/**
 * @description
 * This package provides a client for interacting with the payment processor's
 * checkout API. It encapsulates the logic for making authenticated HTTP
 * requests, constructing request bodies, and parsing responses.
 *
 * The session object returned by the processor is the trust boundary for
 * paid enrollments: the recorded amount and metadata on the session, not
 * anything supplied by the browser, decide what gets written to the ledger.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package paymentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Session statuses reported by the processor.
const (
	SessionStatusPending   = "pending"
	SessionStatusCompleted = "completed"
	SessionStatusExpired   = "expired"
)

// Client is a client for the payment processor's checkout API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new checkout API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SessionMetadata carries the enrollment intent on the processor's session
// object: which user is buying which course. There is no local intent store;
// the session record is the intent record.
type SessionMetadata struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
}

// CreateSessionRequest is the payload for creating a checkout session.
type CreateSessionRequest struct {
	Amount      int64           `json:"amount"` // in cents
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	SuccessURL  string          `json:"success_url"`
	CancelURL   string          `json:"cancel_url"`
	Metadata    SessionMetadata `json:"metadata"`
}

// Session is the processor's checkout session record.
type Session struct {
	ID       string          `json:"id"`
	URL      string          `json:"url"`
	Status   string          `json:"status"`
	Amount   int64           `json:"amount"` // in cents
	Currency string          `json:"currency"`
	Metadata SessionMetadata `json:"metadata"`
}

// ErrorResponse represents an error from the checkout API.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("checkout api error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown checkout api error"
}

// CreateSession creates a new checkout session for a course purchase.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}
	c.setHeaders(httpReq)

	return c.doSession(httpReq)
}

// GetSession retrieves an existing checkout session by its id. The returned
// record is authoritative for status, amount and the enrollment metadata.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	endpoint := c.BaseURL + "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session lookup request: %w", err)
	}
	c.setHeaders(httpReq)

	return c.doSession(httpReq)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func (c *Client) doSession(req *http.Request) (*Session, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkout api request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkout api response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && len(apiErr.Errors) > 0 {
			return nil, &apiErr
		}
		return nil, fmt.Errorf("checkout api returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	return &session, nil
}
