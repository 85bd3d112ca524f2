package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/huanlingzx/gemini-key/internal/model"

	"google.golang.org/api/googleapi"
)

// maxBodyBytes caps how much of a models response is read.
const maxBodyBytes = 4 << 20

// HTTPClient defines the interface for making HTTP requests.
// This allows for mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Checker validates a single key against the remote API.
// Check never fails: every outcome is expressed as a Result status.
type Checker interface {
	Check(ctx context.Context, key string) model.Result
}

// RESTChecker validates keys by listing models over plain HTTP.
type RESTChecker struct {
	endpoint   string
	clientID   string
	httpClient HTTPClient
}

// NewRESTChecker creates a checker for the given models endpoint.
func NewRESTChecker(endpoint, clientID string, timeout time.Duration) *RESTChecker {
	return NewRESTCheckerWithClient(endpoint, clientID, &http.Client{Timeout: timeout})
}

// NewRESTCheckerWithClient creates a checker using a custom HTTP client.
func NewRESTCheckerWithClient(endpoint, clientID string, client HTTPClient) *RESTChecker {
	return &RESTChecker{endpoint: endpoint, clientID: clientID, httpClient: client}
}

// modelList is the subset of the models response the check looks at.
type modelList struct {
	Models json.RawMessage `json:"models"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (m *modelList) hasModels() bool {
	trimmed := bytes.TrimSpace(m.Models)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func (m *modelList) errorMessage() string {
	if m.Error == nil {
		return ""
	}
	return m.Error.Message
}

// Check issues one GET to the models endpoint with key as credential.
func (c *RESTChecker) Check(ctx context.Context, key string) model.Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return networkError(key, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", key)
	if c.clientID != "" {
		req.Header.Set("X-Goog-Api-Client", c.clientID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return networkError(key, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.NewResult(key, model.StatusInvalid, httpErrorMessage(resp, body))
	}

	var payload modelList
	if err := json.Unmarshal(body, &payload); err != nil {
		return networkError(key, fmt.Errorf("invalid JSON response: %w", err))
	}
	if payload.hasModels() {
		return model.NewResult(key, model.StatusValid, "")
	}
	msg := payload.errorMessage()
	if msg == "" {
		msg = "API response did not contain a model list"
	}
	return model.NewResult(key, model.StatusInvalid, msg)
}

// httpErrorMessage prefers the message in a Google error body and falls back to the status line.
func httpErrorMessage(resp *http.Response, body []byte) string {
	resp.Body = io.NopCloser(bytes.NewReader(body))
	var apiErr *googleapi.Error
	if err := googleapi.CheckResponse(resp); errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fmt.Sprintf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

func networkError(key string, err error) model.Result {
	return model.NewResult(key, model.StatusError, "network or server error: "+err.Error())
}
