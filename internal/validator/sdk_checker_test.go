package validator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/huanlingzx/gemini-key/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// sentKey returns the API key the SDK attached to r, from either the query
// string or the header.
func sentKey(r *http.Request) string {
	if k := r.URL.Query().Get("key"); k != "" {
		return k
	}
	return r.Header.Get("X-Goog-Api-Key")
}

// newModelsServer accepts testKey and rejects every other request like the
// real API does for a missing or bad key.
func newModelsServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var keys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := sentKey(r)
		mu.Lock()
		keys = append(keys, key)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if key == testKey {
			w.Write([]byte(`{"models":[{"name":"models/gemini-pro"}]}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"Method doesn't allow unregistered callers","status":"PERMISSION_DENIED"}}`))
	}))
	t.Cleanup(server.Close)
	return server, &keys
}

func TestSDKChecker_Check(t *testing.T) {
	server, keys := newModelsServer(t)
	checker := NewSDKChecker(5*time.Second, option.WithEndpoint(server.URL))

	t.Run("valid key", func(t *testing.T) {
		result := checker.Check(context.Background(), testKey)
		assert.Equal(t, model.StatusValid, result.Status)
		assert.Nil(t, result.ErrorMessage)
	})

	t.Run("rejected key", func(t *testing.T) {
		result := checker.Check(context.Background(), "AIzaSy-revoked")
		assert.Equal(t, model.StatusInvalid, result.Status)
		assert.Contains(t, result.Message(), "unregistered callers")
	})

	require.NotEmpty(t, *keys)
	assert.Equal(t, testKey, (*keys)[0])
}

func TestSDKChecker_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	checker := NewSDKChecker(50*time.Millisecond, option.WithEndpoint(server.URL))
	result := checker.Check(context.Background(), testKey)
	assert.Equal(t, model.StatusError, result.Status)
}

func TestSDKEndpoint(t *testing.T) {
	endpoint, err := SDKEndpoint("https://generativelanguage.googleapis.com/v1beta/models")
	require.NoError(t, err)
	assert.Equal(t, "https://generativelanguage.googleapis.com", endpoint)

	endpoint, err = SDKEndpoint("http://127.0.0.1:8099/v1beta/models")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8099", endpoint)

	_, err = SDKEndpoint("not a url")
	assert.Error(t, err)
}
