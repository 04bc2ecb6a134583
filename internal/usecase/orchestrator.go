package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-orchestrator/internal/domain"
)

// ProfileResolver is the profile lookup the orchestrator needs: resolve a
// selector for a caller, enforcing access.
type ProfileResolver interface {
	Profile(ctx context.Context, selector string, user domain.UserContext) (domain.ProfileDefinition, error)
}

// Orchestrator drives one chat turn end to end: resolve the profile, pick
// the approach service, relay its stream, and persist the completed turn.
//
// Resolution happens synchronously so transport can map profile errors to
// status codes before any bytes stream. History is recorded exactly once,
// after the terminal chunk has been forwarded, and never for turns the
// client abandoned.
type Orchestrator struct {
	profiles ProfileResolver
	resolver *Resolver
	recorder domain.HistoryRecorder
	logger   *slog.Logger
}

func NewOrchestrator(profiles ProfileResolver, resolver *Resolver, recorder domain.HistoryRecorder, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		profiles: profiles,
		resolver: resolver,
		recorder: recorder,
		logger:   logger,
	}
}

// Stream starts one turn. Resolution errors return before the channel exists;
// later failures arrive in-band as the terminal chunk.
func (o *Orchestrator) Stream(ctx context.Context, user domain.UserContext, req domain.ChatRequest) (<-chan domain.ChatChunkResponse, error) {
	profile, service, err := o.resolve(ctx, user, req)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.ChatChunkResponse, 4)
	go func() {
		defer close(out)

		for chunk := range service.Reply(ctx, user, profile, req) {
			terminal := chunk.FinalResult != nil
			if !sendChunk(ctx, out, chunk) {
				return
			}
			if terminal {
				o.recordTurn(ctx, user, req, *chunk.FinalResult)
				return
			}
		}
	}()
	return out, nil
}

// ReplySync runs the turn to completion and returns only the final result,
// for clients that do not consume the stream.
func (o *Orchestrator) ReplySync(ctx context.Context, user domain.UserContext, req domain.ChatRequest) (*domain.ApproachResponse, error) {
	profile, service, err := o.resolve(ctx, user, req)
	if err != nil {
		return nil, err
	}

	for chunk := range service.Reply(ctx, user, profile, req) {
		if chunk.FinalResult != nil {
			o.recordTurn(ctx, user, req, *chunk.FinalResult)
			return chunk.FinalResult, nil
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, fmt.Errorf("stream ended without a final result")
}

func (o *Orchestrator) resolve(ctx context.Context, user domain.UserContext, req domain.ChatRequest) (domain.ProfileDefinition, ChatService, error) {
	selector := req.ProfileFlag()
	if selector == "" {
		return domain.ProfileDefinition{}, nil, fmt.Errorf("no profile selected: %w", domain.ErrProfileNotFound)
	}

	profile, err := o.profiles.Profile(ctx, selector, user)
	if err != nil {
		return domain.ProfileDefinition{}, nil, err
	}

	service, err := o.resolver.Resolve(profile)
	if err != nil {
		return domain.ProfileDefinition{}, nil, err
	}
	return profile, service, nil
}

// recordTurn persists a completed turn, failed answers included. The write
// is detached from the request context so a client disconnecting right after
// the terminal chunk cannot abort it.
func (o *Orchestrator) recordTurn(ctx context.Context, user domain.UserContext, req domain.ChatRequest, result domain.ApproachResponse) {
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := o.recorder.Record(recordCtx, user, req, result); err != nil {
		o.logger.Error("history record failed",
			slog.String("chat_id", req.ChatID),
			slog.String("message_id", req.MessageID),
			slog.Any("error", err))
	}
}
