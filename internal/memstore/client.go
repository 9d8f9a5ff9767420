// Package memstore is the HTTP client for the remote memory store. It is
// the only component in the module that performs network I/O for delivery.
//
// The store is not idempotency-safe: uploading the same session twice is a
// silent append, so duplicate prevention is the pipeline's job, not this
// client's.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/sanitize"
)

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a memory-store client. token may be empty for stores
// that do not require one.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// UploadRequest is one conversation delivery.
type UploadRequest struct {
	SessionID string             `json:"session_id"`
	Messages  []sanitize.Message `json:"messages"`
}

// UploadResult is the store's acknowledgement of a delivery.
type UploadResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	SessionID     string `json:"session_id,omitempty"`
	MessagesCount int    `json:"messages_count,omitempty"`
	Skipped       bool   `json:"skipped,omitempty"`
}

// QueueStatus describes the store's asynchronous post-ingestion work.
type QueueStatus struct {
	TotalWorkUnits      int `json:"totalWorkUnits"`
	CompletedWorkUnits  int `json:"completedWorkUnits"`
	InProgressWorkUnits int `json:"inProgressWorkUnits"`
	PendingWorkUnits    int `json:"pendingWorkUnits"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Upload delivers one conversation's messages under the given session id.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/memories", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upload call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var result UploadResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if !result.Success && !result.Skipped {
		return nil, fmt.Errorf("store rejected upload: %s", result.Message)
	}
	return &result, nil
}

// Status fetches the store's work-unit queue, optionally filtered.
func (c *Client) Status(ctx context.Context, filter string) (*QueueStatus, error) {
	u := c.baseURL + "/api/v1/queue"
	if filter != "" {
		u += "?filter=" + url.QueryEscape(filter)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("status call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var status QueueStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &status, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func checkStatus(code int, body []byte) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code >= 500:
		return &ServerError{StatusCode: code}
	default:
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("store error %d: %s", code, errResp.Error)
		}
		return fmt.Errorf("store error %d: %s", code, string(body))
	}
}
