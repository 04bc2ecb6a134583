package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"chat-orchestrator/internal/domain"
)

const imageFailureMessage = "Image generation failed. Please try again shortly."

// ImageChatService turns the user's prompt into generated images, returned
// inline as markdown data URIs. Image backends do not stream, so the reply
// is a single terminal chunk.
type ImageChatService struct {
	generator domain.ImageGenerator
	logger    *slog.Logger
}

func NewImageChatService(generator domain.ImageGenerator, logger *slog.Logger) *ImageChatService {
	return &ImageChatService{generator: generator, logger: logger}
}

func (s *ImageChatService) Reply(ctx context.Context, user domain.UserContext, profile domain.ProfileDefinition, req domain.ChatRequest) <-chan domain.ChatChunkResponse {
	out := make(chan domain.ChatChunkResponse, 1)
	go func() {
		defer close(out)

		count := 1
		if raw, ok := req.OptionFlags["image_count"]; ok {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 4 {
				count = parsed
			}
		}

		start := time.Now()
		images, err := s.generator.Generate(ctx, req.Question(), count)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("image generation failed",
				slog.String("profile", profile.Name), slog.Any("error", err))
			sendChunk(ctx, out, terminalError(profile, req, imageFailureMessage))
			return
		}

		var sb strings.Builder
		for i, img := range images {
			fmt.Fprintf(&sb, "![generated image %d](data:%s;base64,%s)\n", i+1, img.ContentType, img.Base64)
		}

		respCtx := newResponseContext(profile, req)
		respCtx.Thoughts = []domain.ThoughtRecord{
			{
				Title:       "Generate images",
				Description: fmt.Sprintf("%d images", len(images)),
				ElapsedMs:   time.Since(start).Milliseconds(),
			},
		}
		sendChunk(ctx, out, domain.ChatChunkResponse{
			FinalResult: &domain.ApproachResponse{
				Answer:  strings.TrimSpace(sb.String()),
				Context: respCtx,
			},
		})
	}()
	return out
}
