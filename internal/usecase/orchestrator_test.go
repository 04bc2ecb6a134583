package usecase

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-orchestrator/internal/domain"
)

type fakeProfiles struct {
	profiles map[string]domain.ProfileDefinition
	err      error
}

func (f *fakeProfiles) Profile(ctx context.Context, selector string, user domain.UserContext) (domain.ProfileDefinition, error) {
	if f.err != nil {
		return domain.ProfileDefinition{}, f.err
	}
	p, ok := f.profiles[selector]
	if !ok {
		return domain.ProfileDefinition{}, domain.ErrProfileNotFound
	}
	return p, nil
}

// scriptedService plays back a fixed chunk sequence; with hang set it stalls
// after the scripted chunks until the context is canceled.
type scriptedService struct {
	chunks []domain.ChatChunkResponse
	hang   bool
}

func (s *scriptedService) Reply(ctx context.Context, user domain.UserContext, profile domain.ProfileDefinition, req domain.ChatRequest) <-chan domain.ChatChunkResponse {
	out := make(chan domain.ChatChunkResponse, len(s.chunks))
	go func() {
		defer close(out)
		for _, c := range s.chunks {
			out <- c
		}
		if s.hang {
			<-ctx.Done()
		}
	}()
	return out
}

func successChunks(answer string) []domain.ChatChunkResponse {
	return []domain.ChatChunkResponse{
		{Text: answer},
		{FinalResult: &domain.ApproachResponse{Answer: answer, Context: domain.ResponseContext{Profile: "General Chat"}}},
	}
}

func newOrchestrator(service ChatService, recorder *fakeRecorder) *Orchestrator {
	profiles := &fakeProfiles{profiles: map[string]domain.ProfileDefinition{"chat": chatProfile()}}
	return NewOrchestrator(profiles, NewResolver(Services{Direct: service}), recorder, slog.Default())
}

func TestOrchestrator_StreamForwardsAndRecordsOnce(t *testing.T) {
	recorder := &fakeRecorder{}
	orch := newOrchestrator(&scriptedService{chunks: successChunks("Answer.")}, recorder)

	stream, err := orch.Stream(context.Background(), domain.UserContext{ID: "u1"}, chatRequest("q"))
	require.NoError(t, err)

	chunks := drain(stream)
	assert.Equal(t, "Answer.", streamedText(chunks))
	require.NotNil(t, finalOf(chunks))

	assert.Eventually(t, func() bool { return recorder.count() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestOrchestrator_ProfileErrorsReturnBeforeStreaming(t *testing.T) {
	recorder := &fakeRecorder{}
	orch := newOrchestrator(&scriptedService{}, recorder)

	req := chatRequest("q")
	req.OptionFlags["profile"] = "missing"
	_, err := orch.Stream(context.Background(), domain.UserContext{}, req)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	req.OptionFlags = nil
	_, err = orch.Stream(context.Background(), domain.UserContext{}, req)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestOrchestrator_AccessDeniedPassesThrough(t *testing.T) {
	profiles := &fakeProfiles{err: domain.ErrProfileAccessDenied}
	orch := NewOrchestrator(profiles, NewResolver(fullServices()), &fakeRecorder{}, slog.Default())

	_, err := orch.Stream(context.Background(), domain.UserContext{}, chatRequest("q"))

	assert.ErrorIs(t, err, domain.ErrProfileAccessDenied)
}

func TestOrchestrator_FailedTurnIsRecorded(t *testing.T) {
	recorder := &fakeRecorder{}
	failed := []domain.ChatChunkResponse{
		{FinalResult: &domain.ApproachResponse{Error: "upstream unavailable"}},
	}
	orch := newOrchestrator(&scriptedService{chunks: failed}, recorder)

	stream, err := orch.Stream(context.Background(), domain.UserContext{}, chatRequest("q"))
	require.NoError(t, err)
	drain(stream)

	// Every terminal chunk is persisted, error turns included.
	assert.Eventually(t, func() bool { return recorder.count() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestOrchestrator_CanceledTurnIsNotRecorded(t *testing.T) {
	recorder := &fakeRecorder{}
	orch := newOrchestrator(&scriptedService{chunks: []domain.ChatChunkResponse{{Text: "partial"}}, hang: true}, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := orch.Stream(ctx, domain.UserContext{}, chatRequest("q"))
	require.NoError(t, err)

	first := <-stream
	assert.Equal(t, "partial", first.Text)
	cancel()
	chunks := drain(stream)

	assert.Nil(t, finalOf(chunks))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, recorder.count())
}

func TestOrchestrator_ReplySyncReturnsFinalResult(t *testing.T) {
	recorder := &fakeRecorder{}
	orch := newOrchestrator(&scriptedService{chunks: successChunks("Buffered answer.")}, recorder)

	result, err := orch.ReplySync(context.Background(), domain.UserContext{ID: "u1"}, chatRequest("q"))
	require.NoError(t, err)

	assert.Equal(t, "Buffered answer.", result.Answer)
	assert.Equal(t, 1, recorder.count())
}

func TestOrchestrator_RecordFailureDoesNotBreakStream(t *testing.T) {
	recorder := &fakeRecorder{err: assert.AnError}
	orch := newOrchestrator(&scriptedService{chunks: successChunks("Answer.")}, recorder)

	stream, err := orch.Stream(context.Background(), domain.UserContext{}, chatRequest("q"))
	require.NoError(t, err)

	chunks := drain(stream)
	require.NotNil(t, finalOf(chunks))
}
