// Package transport implements the typed HTTP caller for the conversational
// backend. Every request carries the tenant secret and API version headers;
// user-scoped clients additionally carry the user identity header. The layer
// performs no retries and holds no shared state beyond the http.Client.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Header names of the remote backend's multi-tenant contract.
const (
	HeaderOrganizationSecret = "X-ORGANIZATION-SECRET"
	HeaderUserID             = "X-USER-ID"
	HeaderAPIVersion         = "X-API-Version"
)

// APIError is the structured error raised on any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api request failed with status %d: %s", e.Status, e.Message)
}

// IsConflict reports whether err is the backend's "resource already exists"
// signal. Status 409 is the contract; the message-substring check is a
// compatibility shim for responses that arrive without a usable status code.
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == http.StatusConflict {
		return true
	}
	return apiErr.Status == 0 && strings.Contains(apiErr.Message, "Conflict")
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Config holds configuration for the transport client.
type Config struct {
	BaseURL    string
	Secret     string
	APIVersion string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Client is a thin typed caller. It is safe for concurrent use; WithUser
// derives scoped copies instead of mutating the receiver.
type Client struct {
	baseURL    string
	secret     string
	apiVersion string
	userID     string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a tenant-scoped client. An empty tenant secret is a
// precondition failure reported before any network call is attempted.
func New(cfg Config) (*Client, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("tenant secret not configured")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL not configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secret:     cfg.Secret,
		apiVersion: cfg.APIVersion,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// WithUser returns a copy of the client that attaches the user identity
// header to every request.
func (c *Client) WithUser(userID string) *Client {
	scoped := *c
	scoped.userID = userID
	return &scoped
}

// errorBody is the shape the backend uses for error payloads. Some endpoints
// return "error", others "message".
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Do performs one JSON request against the backend. body and out may be nil.
// Non-2xx responses are returned as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderOrganizationSecret, c.secret)
	if c.apiVersion != "" {
		req.Header.Set(HeaderAPIVersion, c.apiVersion)
	}
	if c.userID != "" {
		req.Header.Set(HeaderUserID, c.userID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: extractMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// extractMessage pulls a human-readable message out of an error payload,
// falling back to the raw body.
func extractMessage(data []byte) string {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	return strings.TrimSpace(string(data))
}
