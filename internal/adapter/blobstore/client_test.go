package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PutAndGet(t *testing.T) {
	stored := map[string][]byte{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			stored[r.URL.Path] = body
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			body, ok := stored[r.URL.Path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write(body)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "uploads", server.Client())

	blobURL, err := client.Put(context.Background(), "user1/report.pdf", "application/pdf", []byte("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s/uploads/user1%%2Freport.pdf", server.URL), blobURL)

	got, err := client.Get(context.Background(), "user1/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), got)
}

func TestClient_GetMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer server.Close()

	client := NewClient(server.URL, "uploads", server.Client())

	_, err := client.Get(context.Background(), "nope.txt")
	assert.ErrorContains(t, err, "404")
}
