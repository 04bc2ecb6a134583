package endpointapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"chat-orchestrator/internal/domain"
)

type streamLine struct {
	Delta string `json:"delta"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Client talks to configured upstream assistant endpoints. A client-side
// rate limiter keeps bursts of chat turns from tripping the upstream's
// throttling before they reach it.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient wraps the HTTP client with a limiter allowing rps requests per
// second with the given burst.
func NewClient(httpClient *http.Client, rps float64, burst int) *Client {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

var _ domain.EndpointClient = (*Client)(nil)

// StreamChat posts a chat turn and streams the upstream's NDJSON reply.
func (c *Client) StreamChat(ctx context.Context, target domain.EndpointTarget, dialect string, messages []domain.Message) (<-chan domain.LLMStreamChunk, <-chan error, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	payload, err := chatPayload(dialect, messages)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.post(ctx, target, target.URL, payload)
	if err != nil {
		return nil, nil, err
	}

	chunks := make(chan domain.LLMStreamChunk, 4)
	errCh := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errCh)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var sl streamLine
			if err := json.Unmarshal(line, &sl); err != nil {
				errCh <- fmt.Errorf("failed to decode stream line: %w", err)
				return
			}
			if sl.Error != "" {
				errCh <- fmt.Errorf("upstream error: %s", sl.Error)
				return
			}
			select {
			case <-ctx.Done():
				return
			case chunks <- domain.LLMStreamChunk{Content: sl.Delta, Done: sl.Done}:
			}
			if sl.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("stream read failed: %w", err)
		}
	}()
	return chunks, errCh, nil
}

// RunTask posts a one-shot task prompt and returns the raw response body.
func (c *Client) RunTask(ctx context.Context, target domain.EndpointTarget, prompt string, options map[string]string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload := map[string]interface{}{"prompt": prompt}
	if len(options) > 0 {
		payload["options"] = options
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task request: %w", err)
	}

	resp, err := c.post(ctx, target, target.URL, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read task response: %w", err)
	}
	return string(raw), nil
}

func (c *Client) post(ctx context.Context, target domain.EndpointTarget, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create endpoint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if target.APIKey != "" {
		req.Header.Set("api-key", target.APIKey)
	} else if target.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+target.BearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call endpoint: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusNotFound:
			return nil, fmt.Errorf("endpoint returned 404: %w", domain.ErrEndpointNotFound)
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("endpoint returned 429: %w", domain.ErrEndpointThrottled)
		default:
			return nil, fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, string(raw))
		}
	}
	return resp, nil
}

// chatPayload renders the request body for the endpoint's dialect. V1 posts
// the messages at the top level; V2 wraps them in a request envelope.
func chatPayload(dialect string, messages []domain.Message) ([]byte, error) {
	switch dialect {
	case domain.EndpointDialectV1:
		return json.Marshal(map[string]interface{}{
			"messages": messages,
			"stream":   true,
		})
	case domain.EndpointDialectV2:
		return json.Marshal(map[string]interface{}{
			"request": map[string]interface{}{
				"messages": messages,
			},
			"options": map[string]interface{}{
				"stream": true,
			},
		})
	default:
		return nil, fmt.Errorf("unknown endpoint dialect %q", dialect)
	}
}
