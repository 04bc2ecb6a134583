package imageapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chat-orchestrator/internal/domain"
)

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

type generateResponse struct {
	Images []struct {
		Base64      string `json:"b64"`
		ContentType string `json:"content_type"`
	} `json:"images"`
}

// Client generates images through the image model API.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, model string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

var _ domain.ImageGenerator = (*Client)(nil)

// Generate produces count images for the prompt, returned base64-encoded.
func (c *Client) Generate(ctx context.Context, prompt string, count int) ([]domain.GeneratedImage, error) {
	if count < 1 {
		count = 1
	}

	payload, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Count: count})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call image endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("image endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("failed to decode image response: %w", err)
	}
	if len(genResp.Images) == 0 {
		return nil, fmt.Errorf("image endpoint returned no images")
	}

	images := make([]domain.GeneratedImage, 0, len(genResp.Images))
	for _, img := range genResp.Images {
		contentType := img.ContentType
		if contentType == "" {
			contentType = "image/png"
		}
		images = append(images, domain.GeneratedImage{Base64: img.Base64, ContentType: contentType})
	}
	return images, nil
}
