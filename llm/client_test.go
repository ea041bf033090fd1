package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novahq/sprintplan/llm"
	_ "github.com/novahq/sprintplan/llm/providers"
	"github.com/novahq/sprintplan/model"
)

// fastRetry keeps the backoff sleeps out of test runtime.
func fastRetry() llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}
}

func completionBody(content string) string {
	body := map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 5,
			"total_tokens":      15,
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func registryForURL(url string) *model.Registry {
	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityPlanning: {Preferred: "primary"},
		},
		map[string]*model.EndpointConfig{
			"primary": {Provider: "ollama", URL: url, Model: "test-model"},
		},
	)
	return registry
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("plan text")))
	}))
	defer srv.Close()

	client := llm.NewClient(registryForURL(srv.URL), llm.WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "planning",
		Messages:   []llm.Message{{Role: "user", Content: "plan this"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "plan text", resp.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.NotEmpty(t, resp.RequestID)
}

func TestCompleteRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream overloaded", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(completionBody("eventually")))
	}))
	defer srv.Close()

	client := llm.NewClient(registryForURL(srv.URL), llm.WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "planning",
		Messages:   []llm.Message{{Role: "user", Content: "plan"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "eventually", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteFatalErrorStopsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := llm.NewClient(registryForURL(srv.URL), llm.WithRetryConfig(fastRetry()))

	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "planning",
		Messages:   []llm.Message{{Role: "user", Content: "plan"}},
	})
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Equal(t, int32(1), calls.Load(), "fatal errors must not be retried")
}

func TestCompleteFallsBackToSecondEndpoint(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("from fallback")))
	}))
	defer healthy.Close()

	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityPlanning: {Preferred: "primary", Fallback: []string{"secondary"}},
		},
		map[string]*model.EndpointConfig{
			"primary":   {Provider: "ollama", URL: broken.URL, Model: "m1"},
			"secondary": {Provider: "ollama", URL: healthy.URL, Model: "m2"},
		},
	)

	client := llm.NewClient(registry, llm.WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "planning",
		Messages:   []llm.Message{{Role: "user", Content: "plan"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Content)
}

func TestCompleteMarksEndpointUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	registry := registryForURL(srv.URL)
	registry.SetHealthConfig(model.HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	client := llm.NewClient(registry, llm.WithRetryConfig(fastRetry()))

	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "planning",
		Messages:   []llm.Message{{Role: "user", Content: "plan"}},
	})
	require.Error(t, err)
	assert.False(t, registry.IsEndpointAvailable("primary"))
}

func TestCompleteValidatesRequest(t *testing.T) {
	client := llm.NewClient(model.NewDefaultRegistry())

	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "x"}},
	})
	assert.Error(t, err)

	_, err = client.Complete(context.Background(), llm.Request{Capability: "planning"})
	assert.Error(t, err)
}

func TestCompleteUnknownProviderIsFatal(t *testing.T) {
	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityPlanning: {Preferred: "weird"},
		},
		map[string]*model.EndpointConfig{
			"weird": {Provider: "nonexistent", URL: "http://localhost:1", Model: "m"},
		},
	)

	client := llm.NewClient(registry, llm.WithRetryConfig(fastRetry()))

	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "planning",
		Messages:   []llm.Message{{Role: "user", Content: "plan"}},
	})
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
}
