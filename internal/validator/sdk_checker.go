package validator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/huanlingzx/gemini-key/internal/model"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SDKChecker validates keys by listing models through the Gemini Go SDK.
type SDKChecker struct {
	timeout time.Duration
	opts    []option.ClientOption
}

// NewSDKChecker creates a checker. Each check is bounded by timeout when it
// is positive. opts are applied after the per-key API key option and must not
// include option.WithHTTPClient, which would drop the key.
func NewSDKChecker(timeout time.Duration, opts ...option.ClientOption) *SDKChecker {
	return &SDKChecker{timeout: timeout, opts: opts}
}

// SDKEndpoint returns the API base URL of a models endpoint such as
// https://generativelanguage.googleapis.com/v1beta/models, for use with
// option.WithEndpoint.
func SDKEndpoint(modelsEndpoint string) (string, error) {
	u, err := url.Parse(modelsEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", modelsEndpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: scheme and host required", modelsEndpoint)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Check creates a client bound to key and asks for the first model.
func (c *SDKChecker) Check(ctx context.Context, key string) model.Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	opts := append([]option.ClientOption{option.WithAPIKey(key)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return networkError(key, err)
	}
	defer client.Close()

	_, err = client.ListModels(ctx).Next()
	if err == nil || errors.Is(err, iterator.Done) {
		return model.NewResult(key, model.StatusValid, "")
	}
	return classifySDKError(key, err)
}

// classifySDKError maps API rejections to invalid and everything else to error.
func classifySDKError(key string, err error) model.Result {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = err.Error()
		}
		return model.NewResult(key, model.StatusInvalid, msg)
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.PermissionDenied, codes.Unauthenticated, codes.InvalidArgument, codes.FailedPrecondition:
			return model.NewResult(key, model.StatusInvalid, s.Message())
		}
	}
	return networkError(key, err)
}
