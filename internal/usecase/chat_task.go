package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"chat-orchestrator/internal/domain"
)

const taskMalformedMessage = "The task service returned an unexpected response. Please try again shortly."

// taskResult is the response body expected from a task endpoint: the answer
// plus the ordered workflow log the task produced while running.
type taskResult struct {
	Answer string     `json:"answer"`
	Error  string     `json:"error,omitempty"`
	Steps  []taskStep `json:"steps,omitempty"`
}

// taskStep is one workflow log entry, optionally timed.
type taskStep struct {
	Name      string `json:"name"`
	Detail    string `json:"detail,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
}

// EndpointTaskService runs a one-shot task against a configured endpoint.
// Task endpoints do not stream, so the reply is a single terminal chunk.
type EndpointTaskService struct {
	client   domain.EndpointClient
	settings domain.SettingsResolver
	tokens   domain.TokenProvider
	logger   *slog.Logger
}

func NewEndpointTaskService(client domain.EndpointClient, settings domain.SettingsResolver, tokens domain.TokenProvider, logger *slog.Logger) *EndpointTaskService {
	return &EndpointTaskService{client: client, settings: settings, tokens: tokens, logger: logger}
}

func (s *EndpointTaskService) Reply(ctx context.Context, user domain.UserContext, profile domain.ProfileDefinition, req domain.ChatRequest) <-chan domain.ChatChunkResponse {
	out := make(chan domain.ChatChunkResponse, 1)
	go func() {
		defer close(out)

		target, err := resolveEndpointTarget(ctx, s.settings, s.tokens, profile)
		if err != nil {
			s.logger.Error("task target resolution failed",
				slog.String("profile", profile.Name), slog.Any("error", err))
			sendChunk(ctx, out, terminalError(profile, req, endpointNotFoundMessage))
			return
		}

		var options map[string]string
		if req.UserSelection != nil {
			options = req.UserSelection.Options
		}

		raw, err := s.client.RunTask(ctx, target, req.Question(), options)
		if err != nil {
			s.logger.Error("task call failed",
				slog.String("profile", profile.Name), slog.Any("error", err))
			sendChunk(ctx, out, terminalError(profile, req, endpointErrorMessage(err)))
			return
		}

		var result taskResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil || strings.TrimSpace(result.Answer) == "" && result.Error == "" {
			s.logger.Error("task response malformed",
				slog.String("profile", profile.Name), slog.Any("error", err))
			sendChunk(ctx, out, terminalError(profile, req, taskMalformedMessage))
			return
		}
		if result.Error != "" {
			sendChunk(ctx, out, terminalError(profile, req, result.Error))
			return
		}

		respCtx := newResponseContext(profile, req)
		respCtx.Thoughts = taskThoughts(result.Steps)

		answer := strings.TrimSpace(result.Answer)
		sendChunk(ctx, out, domain.ChatChunkResponse{
			Text: answer,
			FinalResult: &domain.ApproachResponse{
				Answer:  answer,
				Context: respCtx,
			},
		})
	}()
	return out
}

// taskThoughts surfaces the upstream workflow log in execution order.
func taskThoughts(steps []taskStep) []domain.ThoughtRecord {
	if len(steps) == 0 {
		return nil
	}
	thoughts := make([]domain.ThoughtRecord, 0, len(steps))
	for _, step := range steps {
		thoughts = append(thoughts, domain.ThoughtRecord{
			Title:       step.Name,
			Description: step.Detail,
			ElapsedMs:   step.ElapsedMs,
		})
	}
	return thoughts
}
