package usecase

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-orchestrator/internal/domain"
)

func TestDirectChatService_StreamsAndFinalizes(t *testing.T) {
	llm := &fakeLLM{chunks: []string{"Hello", ", ", "world."}}
	service := NewDirectChatService(llm, NewPromptBuilder(), 1024, slog.Default())

	chunks := drain(service.Reply(context.Background(), domain.UserContext{ID: "u1"}, chatProfile(), chatRequest("hi")))

	assert.Equal(t, "Hello, world.", streamedText(chunks))
	final := finalOf(chunks)
	require.NotNil(t, final)
	assert.Equal(t, "Hello, world.", final.Answer)
	assert.Empty(t, final.Error)
	assert.Equal(t, "General Chat", final.Context.Profile)
	assert.Equal(t, "msg-1", final.Context.MessageID)

	// The terminal chunk is the last one, and the only one carrying a result.
	assert.NotNil(t, chunks[len(chunks)-1].FinalResult)
	count := 0
	for _, c := range chunks {
		if c.FinalResult != nil {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestDirectChatService_PreservesModelWhitespace(t *testing.T) {
	llm := &fakeLLM{chunks: []string{"  Hello", ", world.\n"}}
	service := NewDirectChatService(llm, NewPromptBuilder(), 1024, slog.Default())

	chunks := drain(service.Reply(context.Background(), domain.UserContext{}, chatProfile(), chatRequest("hi")))

	final := finalOf(chunks)
	require.NotNil(t, final)
	assert.Equal(t, "  Hello, world.\n", final.Answer)
	assert.Equal(t, final.Answer, streamedText(chunks))
}

func TestDirectChatService_SetupFailureIsInBand(t *testing.T) {
	llm := &fakeLLM{setupErr: assert.AnError}
	service := NewDirectChatService(llm, NewPromptBuilder(), 1024, slog.Default())

	chunks := drain(service.Reply(context.Background(), domain.UserContext{}, chatProfile(), chatRequest("hi")))

	final := finalOf(chunks)
	require.NotNil(t, final)
	assert.Equal(t, modelUnavailableMessage, final.Error)
	assert.Equal(t, modelUnavailableMessage, streamedText(chunks),
		"failure message must arrive as chunk text")
}

func TestDirectChatService_MidStreamFailureIsInBand(t *testing.T) {
	llm := &fakeLLM{chunks: []string{"partial"}, midErr: assert.AnError}
	service := NewDirectChatService(llm, NewPromptBuilder(), 1024, slog.Default())

	chunks := drain(service.Reply(context.Background(), domain.UserContext{}, chatProfile(), chatRequest("hi")))

	assert.Equal(t, "partial"+modelUnavailableMessage, streamedText(chunks))
	final := finalOf(chunks)
	require.NotNil(t, final)
	assert.Equal(t, modelUnavailableMessage, final.Error)
}

func TestDirectChatService_CancelEndsWithoutTerminalChunk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	llm := &fakeLLM{chunks: []string{"partial"}, hang: true}
	service := NewDirectChatService(llm, NewPromptBuilder(), 1024, slog.Default())

	stream := service.Reply(ctx, domain.UserContext{}, chatProfile(), chatRequest("hi"))

	first := <-stream
	assert.Equal(t, "partial", first.Text)
	cancel()

	chunks := drain(stream)
	assert.Nil(t, finalOf(chunks))
}
