package usecase

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-orchestrator/internal/domain"
)

func imageProfile() domain.ProfileDefinition {
	return domain.ProfileDefinition{ID: "img", Name: "Image Studio", Approach: domain.ApproachImage, SecurityModel: domain.SecurityModelNone}
}

func TestImageChatService_RendersImagesAsDataURIs(t *testing.T) {
	gen := &fakeImageGenerator{images: []domain.GeneratedImage{
		{Base64: "QUFB", ContentType: "image/png"},
		{Base64: "QkJC", ContentType: "image/jpeg"},
	}}
	service := NewImageChatService(gen, slog.Default())

	chunks := drain(service.Reply(context.Background(), domain.UserContext{ID: "u1"}, imageProfile(), chatRequest("a red fox")))

	require.Len(t, chunks, 1)
	final := finalOf(chunks)
	require.NotNil(t, final)
	assert.Equal(t, "a red fox", gen.lastPrompt)
	assert.Contains(t, final.Answer, "![generated image 1](data:image/png;base64,QUFB)")
	assert.Contains(t, final.Answer, "![generated image 2](data:image/jpeg;base64,QkJC)")
	assert.Empty(t, final.Error)
	assert.Equal(t, "Image Studio", final.Context.Profile)

	require.Len(t, final.Context.Thoughts, 1)
	assert.Equal(t, "Generate images", final.Context.Thoughts[0].Title)
	assert.Equal(t, "2 images", final.Context.Thoughts[0].Description)
}

func TestImageChatService_ImageCountFlag(t *testing.T) {
	cases := []struct {
		name string
		flag string
		want int
	}{
		{name: "default", flag: "", want: 1},
		{name: "explicit", flag: "3", want: 3},
		{name: "too large", flag: "9", want: 1},
		{name: "zero", flag: "0", want: 1},
		{name: "not a number", flag: "many", want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeImageGenerator{images: []domain.GeneratedImage{{Base64: "QUFB", ContentType: "image/png"}}}
			service := NewImageChatService(gen, slog.Default())

			req := chatRequest("a red fox")
			if tc.flag != "" {
				req.OptionFlags["image_count"] = tc.flag
			}
			drain(service.Reply(context.Background(), domain.UserContext{}, imageProfile(), req))

			assert.Equal(t, tc.want, gen.lastCount)
		})
	}
}

func TestImageChatService_GeneratorFailureIsInBand(t *testing.T) {
	gen := &fakeImageGenerator{err: assert.AnError}
	service := NewImageChatService(gen, slog.Default())

	chunks := drain(service.Reply(context.Background(), domain.UserContext{}, imageProfile(), chatRequest("a red fox")))

	final := finalOf(chunks)
	require.NotNil(t, final)
	assert.Equal(t, imageFailureMessage, final.Error)
}

func TestImageChatService_CanceledContextEndsWithoutTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &fakeImageGenerator{err: ctx.Err()}
	service := NewImageChatService(gen, slog.Default())

	chunks := drain(service.Reply(ctx, domain.UserContext{}, imageProfile(), chatRequest("a red fox")))

	assert.Nil(t, finalOf(chunks))
}
