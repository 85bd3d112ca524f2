// Package client talks to the key validator HTTP API and drives chunked
// validation the way an interactive front end does.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/huanlingzx/gemini-key/internal/api"
	"github.com/huanlingzx/gemini-key/internal/model"
	"github.com/huanlingzx/gemini-key/internal/validator"

	"github.com/go-resty/resty/v2"
)

// ErrBatchFailed marks a chunk whose request itself failed. Remaining chunks are not sent.
var ErrBatchFailed = errors.New("batch request failed")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Progress is reported after every completed chunk.
type Progress struct {
	Processed int
	Total     int
	Batch     int
	Batches   int
	// Results is the merged view so far.
	Results []model.Result
}

// Percent returns the completed share rounded to the nearest integer.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 100
	}
	return (p.Processed*100 + p.Total/2) / p.Total
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	username   string
	password   string
	rc         *resty.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBasicAuth sends Basic credentials on every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient != nil {
		c.rc = resty.NewWithClient(c.httpClient)
	} else {
		c.rc = resty.New().SetTimeout(10 * time.Minute)
	}
	c.rc.SetBaseURL(c.baseURL).SetHeader("User-Agent", "geminikey-cli/1.0")
	if c.username != "" || c.password != "" {
		c.rc.SetBasicAuth(c.username, c.password)
	}
	return c
}

// ValidateBatch sends one chunk of keys and returns the per-key results.
func (c *Client) ValidateBatch(ctx context.Context, keys []string) ([]model.Result, error) {
	var results []model.Result
	err := c.do(ctx, http.MethodPost, "/api/validate-keys", api.KeysRequest{Keys: keys, Action: api.ActionValidate}, &results)
	return results, err
}

// ValidateAll validates keys in chunks of batchSize, one chunk at a time,
// merging each chunk's results by key string. The first chunk that fails
// stops the run; the results merged so far are returned with the error.
func (c *Client) ValidateAll(ctx context.Context, keys []string, batchSize int, onProgress func(Progress)) ([]model.Result, error) {
	chunks := validator.Chunk(keys, batchSize)
	merged := []model.Result{}
	processed := 0
	for i, chunk := range chunks {
		results, err := c.ValidateBatch(ctx, chunk)
		if err != nil {
			return merged, fmt.Errorf("%w: batch %d of %d: %w", ErrBatchFailed, i+1, len(chunks), err)
		}
		merged = validator.Merge(merged, results)
		processed += len(chunk)
		if onProgress != nil {
			onProgress(Progress{
				Processed: processed,
				Total:     len(keys),
				Batch:     i + 1,
				Batches:   len(chunks),
				Results:   merged,
			})
		}
	}
	return merged, nil
}

// FetchAll returns the stored records, newest first. limit 0 returns all.
func (c *Client) FetchAll(ctx context.Context, limit int) ([]model.KeyRecord, error) {
	records := []model.KeyRecord{}
	err := c.do(ctx, http.MethodPost, "/api/validate-keys", api.KeysRequest{Keys: []string{}, Action: api.ActionFetchAll, Count: limit}, &records)
	return records, err
}

// ClearInvalid deletes the stored records with status invalid or error.
func (c *Client) ClearInvalid(ctx context.Context) (*api.ClearResponse, error) {
	var out api.ClearResponse
	if err := c.do(ctx, http.MethodPost, "/api/validate-keys", api.KeysRequest{Keys: []string{}, Action: api.ActionClearInvalid}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Extract asks the server for the candidate keys in text.
func (c *Client) Extract(ctx context.Context, text string) ([]string, error) {
	var out api.ExtractResponse
	if err := c.do(ctx, http.MethodPost, "/api/extract", api.ExtractRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return out.Keys, nil
}

// ExportValid returns the valid keys. No valid keys is not an error.
func (c *Client) ExportValid(ctx context.Context) ([]string, error) {
	resp, err := c.rc.R().SetContext(ctx).Get("/api/keys/export")
	if err != nil {
		return nil, fmt.Errorf("export request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		apiErr := decodeAPIError(resp)
		// Only the export handler's own 404 means there is nothing to export.
		if apiErr.StatusCode == http.StatusNotFound && apiErr.Message == api.ErrNoValidKeysMessage {
			return []string{}, nil
		}
		return nil, apiErr
	}
	keys := []string{}
	for _, line := range strings.Split(resp.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			keys = append(keys, line)
		}
	}
	return keys, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(in).
		Execute(method, path)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	if !resp.IsSuccess() {
		return decodeAPIError(resp)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *resty.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}
