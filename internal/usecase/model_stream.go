package usecase

import (
	"context"
	"strings"

	"chat-orchestrator/internal/domain"
)

type streamOutcome int

const (
	streamDone streamOutcome = iota
	streamFailed
	streamCanceled
)

// forwardModelStream pumps model output chunks to the client channel while
// accumulating the full answer. It returns the accumulated text and how the
// stream ended; the caller owns sending the terminal chunk.
func forwardModelStream(
	ctx context.Context,
	out chan<- domain.ChatChunkResponse,
	chunkCh <-chan domain.LLMStreamChunk,
	errCh <-chan error,
) (string, error, streamOutcome) {
	var builder strings.Builder

	for chunkCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return builder.String(), ctx.Err(), streamCanceled
		case chunk, ok := <-chunkCh:
			if !ok {
				chunkCh = nil
				continue
			}
			if chunk.Content != "" {
				builder.WriteString(chunk.Content)
				if !sendChunk(ctx, out, domain.ChatChunkResponse{Text: chunk.Content}) {
					return builder.String(), ctx.Err(), streamCanceled
				}
			}
			if chunk.Done {
				return builder.String(), nil, streamDone
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			return builder.String(), err, streamFailed
		}
	}
	return builder.String(), nil, streamDone
}
