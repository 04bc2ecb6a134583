package modelapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-orchestrator/internal/domain"
)

func TestOllamaGenerator_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		fmt.Fprint(w, `{"message":{"content":"Hello there."},"done":true}`)
	}))
	defer server.Close()

	gen := NewOllamaGenerator(server.URL, "test-model", server.Client())

	resp, err := gen.Chat(context.Background(), []domain.Message{{Role: "user", Content: "hi"}}, 256)
	require.NoError(t, err)

	assert.Equal(t, "Hello there.", resp.Text)
	assert.True(t, resp.Done)
}

func TestOllamaGenerator_ChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"Hel"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"lo."},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	}))
	defer server.Close()

	gen := NewOllamaGenerator(server.URL, "test-model", server.Client())

	chunks, errCh, err := gen.ChatStream(context.Background(), []domain.Message{{Role: "user", Content: "hi"}}, 0)
	require.NoError(t, err)

	var text string
	var sawDone bool
	for c := range chunks {
		text += c.Content
		if c.Done {
			sawDone = true
		}
	}
	assert.Equal(t, "Hello.", text)
	assert.True(t, sawDone)
	assert.NoError(t, <-errCh)
}

func TestOllamaGenerator_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	gen := NewOllamaGenerator(server.URL, "test-model", server.Client())

	_, err := gen.Chat(context.Background(), []domain.Message{{Role: "user", Content: "hi"}}, 0)
	assert.ErrorContains(t, err, "500")

	_, _, err = gen.ChatStream(context.Background(), []domain.Message{{Role: "user", Content: "hi"}}, 0)
	assert.ErrorContains(t, err, "500")
}

func TestOllamaEmbedder_Encode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		fmt.Fprint(w, `{"embeddings":[[0.1,0.2],[0.3,0.4]]}`)
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(server.URL, "embed-model", server.Client())

	vectors, err := embedder.Encode(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vectors[0])
}

func TestOllamaEmbedder_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"embeddings":[[0.1,0.2]]}`)
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(server.URL, "embed-model", server.Client())

	_, err := embedder.Encode(context.Background(), []string{"first", "second"})
	assert.Error(t, err)
}
