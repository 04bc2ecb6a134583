package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"chat-orchestrator/internal/domain"
)

// Counter measures text in model tokens using a tiktoken encoding. The
// retrieval budget filter only needs counts, never the token ids.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter loads the named encoding, cl100k_base when empty.
func NewCounter(encodingName string) (*Counter, error) {
	if encodingName == "" {
		encodingName = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer encoding %s: %w", encodingName, err)
	}
	return &Counter{encoding: enc}, nil
}

var _ domain.TokenCounter = (*Counter)(nil)

func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// WordCounter approximates token counts by whitespace-separated words. Used
// when the tiktoken vocabulary cannot be fetched at startup.
type WordCounter struct{}

var _ domain.TokenCounter = WordCounter{}

func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}
