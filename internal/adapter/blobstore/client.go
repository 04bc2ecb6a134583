package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client stores and fetches blobs through the object store's HTTP gateway.
// Uploaded user documents are archived here before indexing so the original
// bytes survive re-chunking.
type Client struct {
	baseURL    string
	container  string
	httpClient *http.Client
}

func NewClient(baseURL, container string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		container:  container,
		httpClient: httpClient,
	}
}

// Put uploads the blob and returns its URL.
func (c *Client) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	blobURL := c.urlFor(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, blobURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create blob request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("blob store returned %d: %s", resp.StatusCode, string(raw))
	}
	return blobURL, nil
}

// Get fetches the blob's bytes.
func (c *Client) Get(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.urlFor(name), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blob store returned %d for %s", resp.StatusCode, name)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) urlFor(name string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.container, url.PathEscape(name))
}
