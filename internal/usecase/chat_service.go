package usecase

import (
	"context"

	"chat-orchestrator/internal/domain"
)

// ChatService answers one chat turn for a resolved profile. Implementations
// stream zero or more text chunks followed by exactly one terminal chunk
// carrying the FinalResult; the channel closes after the terminal chunk.
//
// A canceled context ends the stream early without a terminal chunk.
type ChatService interface {
	Reply(ctx context.Context, user domain.UserContext, profile domain.ProfileDefinition, req domain.ChatRequest) <-chan domain.ChatChunkResponse
}

// sendChunk delivers one chunk unless the caller has gone away.
func sendChunk(ctx context.Context, out chan<- domain.ChatChunkResponse, chunk domain.ChatChunkResponse) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- chunk:
		return true
	}
}

// newResponseContext seeds the terminal chunk metadata for one turn.
func newResponseContext(profile domain.ProfileDefinition, req domain.ChatRequest) domain.ResponseContext {
	return domain.ResponseContext{
		Profile:   profile.Name,
		MessageID: req.MessageID,
		ChatID:    req.ChatID,
		ThreadID:  req.ThreadID,
	}
}

// terminalError builds the single terminal chunk for a failed turn. The
// user-safe message travels as the chunk's text so the client renders it in
// the chat bubble; the underlying error goes to the log, not the wire.
func terminalError(profile domain.ProfileDefinition, req domain.ChatRequest, message string) domain.ChatChunkResponse {
	return domain.ChatChunkResponse{
		Text: message,
		FinalResult: &domain.ApproachResponse{
			Answer:  message,
			Context: newResponseContext(profile, req),
			Error:   message,
		},
	}
}

// maxTokensFor applies the per-request override over the configured default.
func maxTokensFor(req domain.ChatRequest, fallback int) int {
	if req.Overrides != nil && req.Overrides.MaxTokens != nil && *req.Overrides.MaxTokens > 0 {
		return *req.Overrides.MaxTokens
	}
	return fallback
}
