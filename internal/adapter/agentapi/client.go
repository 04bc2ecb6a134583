package agentapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"chat-orchestrator/internal/domain"
)

type threadResource struct {
	ID            string `json:"id"`
	VectorStoreID string `json:"vector_store_id"`
}

type vectorStoreResource struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type fileResource struct {
	ID string `json:"id"`
}

type runEvent struct {
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	FileID   string `json:"file_id,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Start    int    `json:"start,omitempty"`
	End      int    `json:"end,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Client implements the agent service port over its REST API. The service
// owns threads, vector stores, and file storage; this client only moves
// ids and bytes across.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

var _ domain.AgentClient = (*Client)(nil)

func (c *Client) CreateThread(ctx context.Context) (*domain.AgentThread, error) {
	var res threadResource
	if err := c.doJSON(ctx, http.MethodPost, "/threads", struct{}{}, &res); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return &domain.AgentThread{ID: res.ID, VectorStoreID: res.VectorStoreID}, nil
}

func (c *Client) GetThread(ctx context.Context, threadID string) (*domain.AgentThread, error) {
	var res threadResource
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+threadID, nil, &res); err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}
	return &domain.AgentThread{ID: res.ID, VectorStoreID: res.VectorStoreID}, nil
}

// UploadFile sends the file as multipart form data and returns the stored
// file's id.
func (c *Client) UploadFile(ctx context.Context, name, contentType string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write upload payload: %w", err)
	}
	if contentType != "" {
		if err := writer.WriteField("content_type", contentType); err != nil {
			return "", fmt.Errorf("failed to write upload payload: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("agent service returned %d: %s", resp.StatusCode, string(raw))
	}

	var res fileResource
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	return res.ID, nil
}

func (c *Client) CreateVectorStore(ctx context.Context, threadID string, fileIDs []string) (*domain.VectorStore, error) {
	payload := map[string]interface{}{
		"thread_id": threadID,
		"file_ids":  fileIDs,
	}
	var res vectorStoreResource
	if err := c.doJSON(ctx, http.MethodPost, "/vector_stores", payload, &res); err != nil {
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	return &domain.VectorStore{ID: res.ID, Status: res.Status}, nil
}

func (c *Client) GetVectorStore(ctx context.Context, storeID string) (*domain.VectorStore, error) {
	var res vectorStoreResource
	if err := c.doJSON(ctx, http.MethodGet, "/vector_stores/"+storeID, nil, &res); err != nil {
		return nil, fmt.Errorf("failed to get vector store %s: %w", storeID, err)
	}
	return &domain.VectorStore{ID: res.ID, Status: res.Status}, nil
}

func (c *Client) AddFilesToVectorStore(ctx context.Context, storeID string, fileIDs []string) error {
	payload := map[string]interface{}{"file_ids": fileIDs}
	if err := c.doJSON(ctx, http.MethodPost, "/vector_stores/"+storeID+"/files", payload, nil); err != nil {
		return fmt.Errorf("failed to add files to vector store %s: %w", storeID, err)
	}
	return nil
}

func (c *Client) FileContentURL(fileID string) string {
	return c.baseURL + "/files/" + fileID + "/content"
}

// StreamRun starts a run on the thread and streams its NDJSON events.
func (c *Client) StreamRun(ctx context.Context, agentID, threadID, prompt string) (<-chan domain.AgentStreamEvent, <-chan error, error) {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal run request: %w", err)
	}

	url := fmt.Sprintf("%s/agents/%s/threads/%s/runs", c.baseURL, agentID, threadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start run: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, nil, fmt.Errorf("agent service returned %d: %s", resp.StatusCode, string(raw))
	}

	events := make(chan domain.AgentStreamEvent, 4)
	errCh := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errCh)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var ev runEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				errCh <- fmt.Errorf("failed to decode run event: %w", err)
				return
			}
			if ev.Error != "" {
				errCh <- fmt.Errorf("run failed: %s", ev.Error)
				return
			}
			select {
			case <-ctx.Done():
				return
			case events <- domain.AgentStreamEvent{
				Kind:     ev.Kind,
				Text:     ev.Text,
				FileID:   ev.FileID,
				FileName: ev.FileName,
				Start:    ev.Start,
				End:      ev.End,
			}:
			}
			if ev.Kind == domain.AgentEventDone {
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("run stream read failed: %w", err)
		}
	}()
	return events, errCh, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("agent service returned %d: %s", resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}
