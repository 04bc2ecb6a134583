package domain

import "context"

// EndpointTarget is a fully resolved upstream assistant endpoint: the URL
// plus whichever credential the profile's settings produced. Exactly one of
// APIKey or BearerToken is typically set.
type EndpointTarget struct {
	URL         string
	APIKey      string
	BearerToken string
}

// Endpoint payload dialects. V2 wraps messages in a request envelope while
// V1 posts them at the top level.
const (
	EndpointDialectV1 = "v1"
	EndpointDialectV2 = "v2"
)

// EndpointClient talks to configured upstream assistant endpoints.
type EndpointClient interface {
	// StreamChat posts a chat turn and streams the reply. Both channels close
	// when the upstream response ends.
	StreamChat(ctx context.Context, target EndpointTarget, dialect string, messages []Message) (<-chan LLMStreamChunk, <-chan error, error)
	// RunTask posts a one-shot task prompt and returns the raw response body.
	RunTask(ctx context.Context, target EndpointTarget, prompt string, options map[string]string) (string, error)
}
