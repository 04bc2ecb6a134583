package usecase

import (
	"context"
	"log/slog"
	"time"

	"chat-orchestrator/internal/domain"
)

const modelUnavailableMessage = "The model is currently unavailable. Please try again shortly."

// DirectChatService answers with the chat model alone, no retrieval.
type DirectChatService struct {
	llm       domain.LLMClient
	prompts   *PromptBuilder
	maxTokens int
	logger    *slog.Logger
}

func NewDirectChatService(llm domain.LLMClient, prompts *PromptBuilder, maxTokens int, logger *slog.Logger) *DirectChatService {
	return &DirectChatService{llm: llm, prompts: prompts, maxTokens: maxTokens, logger: logger}
}

func (s *DirectChatService) Reply(ctx context.Context, user domain.UserContext, profile domain.ProfileDefinition, req domain.ChatRequest) <-chan domain.ChatChunkResponse {
	out := make(chan domain.ChatChunkResponse, 4)
	go func() {
		defer close(out)

		start := time.Now()
		messages := s.prompts.BuildChat(profile, req)

		chunkCh, errCh, err := s.llm.ChatStream(ctx, messages, maxTokensFor(req, s.maxTokens))
		if err != nil {
			s.logger.Error("chat stream setup failed",
				slog.String("profile", profile.Name), slog.Any("error", err))
			sendChunk(ctx, out, terminalError(profile, req, modelUnavailableMessage))
			return
		}

		answer, streamErr, outcome := forwardModelStream(ctx, out, chunkCh, errCh)
		switch outcome {
		case streamCanceled:
			return
		case streamFailed:
			s.logger.Error("chat stream failed",
				slog.String("profile", profile.Name), slog.Any("error", streamErr))
			sendChunk(ctx, out, terminalError(profile, req, modelUnavailableMessage))
			return
		}

		respCtx := newResponseContext(profile, req)
		respCtx.Thoughts = []domain.ThoughtRecord{
			{
				Title:       "Generate answer",
				Description: "model " + s.llm.Version(),
				ElapsedMs:   time.Since(start).Milliseconds(),
			},
		}
		sendChunk(ctx, out, domain.ChatChunkResponse{
			FinalResult: &domain.ApproachResponse{
				Answer:  answer,
				Context: respCtx,
			},
		})
	}()
	return out
}
