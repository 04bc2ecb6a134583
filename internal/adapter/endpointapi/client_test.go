package endpointapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-orchestrator/internal/domain"
)

func TestClient_StreamChatV1(t *testing.T) {
	var got map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		fmt.Fprintln(w, `{"delta":"Hel","done":false}`)
		fmt.Fprintln(w, `{"delta":"lo.","done":false}`)
		fmt.Fprintln(w, `{"delta":"","done":true}`)
	}))
	defer server.Close()

	client := NewClient(server.Client(), 100, 10)
	target := domain.EndpointTarget{URL: server.URL, APIKey: "secret"}

	chunks, errCh, err := client.StreamChat(context.Background(), target, domain.EndpointDialectV1, []domain.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	var text string
	for c := range chunks {
		text += c.Content
	}
	assert.Equal(t, "Hello.", text)
	assert.NoError(t, <-errCh)

	assert.Contains(t, got, "messages")
	assert.NotContains(t, got, "request")
}

func TestClient_StreamChatV2Envelope(t *testing.T) {
	var got map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		fmt.Fprintln(w, `{"delta":"ok","done":true}`)
	}))
	defer server.Close()

	client := NewClient(server.Client(), 100, 10)
	target := domain.EndpointTarget{URL: server.URL, BearerToken: "tok"}

	chunks, errCh, err := client.StreamChat(context.Background(), target, domain.EndpointDialectV2, []domain.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	for range chunks {
	}
	assert.NoError(t, <-errCh)

	assert.Contains(t, got, "request")
	assert.NotContains(t, got, "messages")
}

func TestClient_StreamChatStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, domain.ErrEndpointNotFound},
		{"throttled", http.StatusTooManyRequests, domain.ErrEndpointThrottled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(server.Client(), 100, 10)
			_, _, err := client.StreamChat(context.Background(), domain.EndpointTarget{URL: server.URL}, domain.EndpointDialectV1, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_StreamChatUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"delta":"partial","done":false}`)
		fmt.Fprintln(w, `{"error":"backend exploded"}`)
	}))
	defer server.Close()

	client := NewClient(server.Client(), 100, 10)
	chunks, errCh, err := client.StreamChat(context.Background(), domain.EndpointTarget{URL: server.URL}, domain.EndpointDialectV1, nil)
	require.NoError(t, err)

	for range chunks {
	}
	assert.ErrorContains(t, <-errCh, "backend exploded")
}

func TestClient_RunTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "summarize this", body["prompt"])
		fmt.Fprint(w, `{"answer":"a summary"}`)
	}))
	defer server.Close()

	client := NewClient(server.Client(), 100, 10)
	raw, err := client.RunTask(context.Background(), domain.EndpointTarget{URL: server.URL}, "summarize this", map[string]string{"length": "short"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"a summary"}`, raw)
}

func TestClient_UnknownDialect(t *testing.T) {
	client := NewClient(http.DefaultClient, 100, 10)
	_, _, err := client.StreamChat(context.Background(), domain.EndpointTarget{URL: "http://localhost"}, "v9", nil)
	assert.ErrorContains(t, err, "dialect")
}
