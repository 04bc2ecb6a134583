package domain

import "context"

// Message is one chat-formatted message sent to a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMResponse carries a complete model output and whether generation finished.
type LLMResponse struct {
	Text string
	Done bool
}

// LLMStreamChunk is one increment of a streamed model output.
type LLMStreamChunk struct {
	Content string
	Done    bool
}

// LLMClient is the capability to send chat messages to a model and receive
// text back, buffered or streamed. Streaming returns a chunk channel and an
// error channel; both close when the generation ends.
type LLMClient interface {
	Chat(ctx context.Context, messages []Message, maxTokens int) (*LLMResponse, error)
	ChatStream(ctx context.Context, messages []Message, maxTokens int) (<-chan LLMStreamChunk, <-chan error, error)
	Version() string
}

// VectorEncoder turns text into embedding vectors.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}

// TokenCounter measures text length in model tokens. Used by the retrieval
// token-budget filter.
type TokenCounter interface {
	Count(text string) int
}

// ImageGenerator produces images from a text prompt, returned as
// base64-encoded payloads.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, count int) ([]GeneratedImage, error)
}

// GeneratedImage is one produced image.
type GeneratedImage struct {
	Base64      string
	ContentType string
}
