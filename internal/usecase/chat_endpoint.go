package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chat-orchestrator/internal/domain"
)

const (
	endpointNotFoundMessage  = "The configured assistant endpoint could not be reached. Please contact your administrator."
	endpointThrottledMessage = "The assistant is handling too many requests right now. Please try again in a moment."
	endpointFailureMessage   = "The assistant failed to answer. Please try again shortly."
)

// EndpointAssistantService relays a chat turn to a configured upstream
// assistant endpoint and streams its reply. The dialect selects the payload
// shape the upstream expects.
type EndpointAssistantService struct {
	client   domain.EndpointClient
	settings domain.SettingsResolver
	tokens   domain.TokenProvider
	prompts  *PromptBuilder
	dialect  string
	logger   *slog.Logger
}

func NewEndpointAssistantService(
	client domain.EndpointClient,
	settings domain.SettingsResolver,
	tokens domain.TokenProvider,
	prompts *PromptBuilder,
	dialect string,
	logger *slog.Logger,
) *EndpointAssistantService {
	return &EndpointAssistantService{
		client:   client,
		settings: settings,
		tokens:   tokens,
		prompts:  prompts,
		dialect:  dialect,
		logger:   logger,
	}
}

func (s *EndpointAssistantService) Reply(ctx context.Context, user domain.UserContext, profile domain.ProfileDefinition, req domain.ChatRequest) <-chan domain.ChatChunkResponse {
	out := make(chan domain.ChatChunkResponse, 4)
	go func() {
		defer close(out)

		target, err := resolveEndpointTarget(ctx, s.settings, s.tokens, profile)
		if err != nil {
			s.logger.Error("endpoint target resolution failed",
				slog.String("profile", profile.Name), slog.Any("error", err))
			sendChunk(ctx, out, terminalError(profile, req, endpointNotFoundMessage))
			return
		}

		messages := s.prompts.BuildChat(profile, req)
		chunkCh, errCh, err := s.client.StreamChat(ctx, target, s.dialect, messages)
		if err != nil {
			s.logger.Error("endpoint stream setup failed",
				slog.String("profile", profile.Name), slog.Any("error", err))
			sendChunk(ctx, out, terminalError(profile, req, endpointErrorMessage(err)))
			return
		}

		answer, streamErr, outcome := forwardModelStream(ctx, out, chunkCh, errCh)
		switch outcome {
		case streamCanceled:
			return
		case streamFailed:
			s.logger.Error("endpoint stream failed",
				slog.String("profile", profile.Name), slog.Any("error", streamErr))
			sendChunk(ctx, out, terminalError(profile, req, endpointErrorMessage(streamErr)))
			return
		}

		sendChunk(ctx, out, domain.ChatChunkResponse{
			FinalResult: &domain.ApproachResponse{
				Answer:  answer,
				Context: newResponseContext(profile, req),
			},
		})
	}()
	return out
}

// resolveEndpointTarget turns a profile's setting names into a concrete
// target. An API key wins over token auth; a bearer token is only fetched
// when no key is configured.
func resolveEndpointTarget(ctx context.Context, settings domain.SettingsResolver, tokens domain.TokenProvider, profile domain.ProfileDefinition) (domain.EndpointTarget, error) {
	es := profile.EndpointSettings
	if es == nil {
		return domain.EndpointTarget{}, domain.ErrApproachNotConfigured
	}

	url := settings.Setting(es.EndpointSettingName)
	if url == "" {
		return domain.EndpointTarget{}, fmt.Errorf("setting %q resolves to no endpoint: %w", es.EndpointSettingName, domain.ErrEndpointNotFound)
	}

	target := domain.EndpointTarget{
		URL:    url,
		APIKey: settings.Setting(es.APIKeySettingName),
	}
	if target.APIKey == "" && tokens != nil {
		scope := settings.Setting(es.TokenScopeSetting)
		if scope == "" {
			scope = domain.DefaultTokenScope
		}
		token, err := tokens.Token(ctx, scope)
		if err != nil {
			return domain.EndpointTarget{}, fmt.Errorf("acquire endpoint token: %w", err)
		}
		target.BearerToken = token
	}
	return target, nil
}

// endpointErrorMessage maps classified upstream failures to user-safe text.
func endpointErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEndpointNotFound):
		return endpointNotFoundMessage
	case errors.Is(err, domain.ErrEndpointThrottled):
		return endpointThrottledMessage
	default:
		return endpointFailureMessage
	}
}
