package usecase

import (
	"context"
	"sync"

	"chat-orchestrator/internal/domain"
)

type fakeLLM struct {
	chunks   []string
	setupErr error
	midErr   error // delivered after the chunks instead of Done
	hang     bool  // keep the stream open until the context is canceled
}

func (f *fakeLLM) Chat(ctx context.Context, messages []domain.Message, maxTokens int) (*domain.LLMResponse, error) {
	if f.setupErr != nil {
		return nil, f.setupErr
	}
	var text string
	for _, c := range f.chunks {
		text += c
	}
	return &domain.LLMResponse{Text: text, Done: true}, nil
}

func (f *fakeLLM) ChatStream(ctx context.Context, messages []domain.Message, maxTokens int) (<-chan domain.LLMStreamChunk, <-chan error, error) {
	if f.setupErr != nil {
		return nil, nil, f.setupErr
	}
	chunkCh := make(chan domain.LLMStreamChunk, len(f.chunks)+1)
	errCh := make(chan error, 1)
	go func() {
		defer close(chunkCh)
		defer close(errCh)
		for _, c := range f.chunks {
			chunkCh <- domain.LLMStreamChunk{Content: c}
		}
		if f.hang {
			<-ctx.Done()
			return
		}
		if f.midErr != nil {
			errCh <- f.midErr
			return
		}
		chunkCh <- domain.LLMStreamChunk{Done: true}
	}()
	return chunkCh, errCh, nil
}

func (f *fakeLLM) Version() string { return "fake-model" }

type fakeRetriever struct {
	sources  []domain.KnowledgeSource
	err      error
	lastOpts domain.SearchOptions
}

func (f *fakeRetriever) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.KnowledgeSource, error) {
	f.lastOpts = opts
	return f.sources, f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []domain.ApproachResponse
	err     error
}

func (f *fakeRecorder) Record(ctx context.Context, user domain.UserContext, req domain.ChatRequest, result domain.ApproachResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, result)
	return nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeRecorder) ListRecent(ctx context.Context, userID string, limit int) ([]domain.ChatHistoryEntry, error) {
	return nil, nil
}

func (f *fakeRecorder) ListPage(ctx context.Context, userID string, offset, limit int) (*domain.HistoryPage, error) {
	return &domain.HistoryPage{}, nil
}

func (f *fakeRecorder) ListByChat(ctx context.Context, userID, chatID string) ([]domain.ChatHistoryEntry, error) {
	return nil, nil
}

func (f *fakeRecorder) Rate(ctx context.Context, userID, messageID string, rating int, feedback string) error {
	return nil
}

type fakeSettings map[string]string

func (f fakeSettings) Setting(name string) string { return f[name] }

type fakeTokens struct {
	token     string
	err       error
	lastScope string
}

func (f *fakeTokens) Token(ctx context.Context, scope string) (string, error) {
	f.lastScope = scope
	return f.token, f.err
}

type fakeEndpointClient struct {
	chunks     []string
	streamErr  error
	taskBody   string
	taskErr    error
	lastTarget domain.EndpointTarget
	lastDialect string
}

func (f *fakeEndpointClient) StreamChat(ctx context.Context, target domain.EndpointTarget, dialect string, messages []domain.Message) (<-chan domain.LLMStreamChunk, <-chan error, error) {
	f.lastTarget = target
	f.lastDialect = dialect
	if f.streamErr != nil {
		return nil, nil, f.streamErr
	}
	chunkCh := make(chan domain.LLMStreamChunk, len(f.chunks)+1)
	errCh := make(chan error, 1)
	go func() {
		defer close(chunkCh)
		defer close(errCh)
		for _, c := range f.chunks {
			chunkCh <- domain.LLMStreamChunk{Content: c}
		}
		chunkCh <- domain.LLMStreamChunk{Done: true}
	}()
	return chunkCh, errCh, nil
}

func (f *fakeEndpointClient) RunTask(ctx context.Context, target domain.EndpointTarget, prompt string, options map[string]string) (string, error) {
	f.lastTarget = target
	return f.taskBody, f.taskErr
}

type fakeImageGenerator struct {
	images     []domain.GeneratedImage
	err        error
	lastPrompt string
	lastCount  int
}

func (f *fakeImageGenerator) Generate(ctx context.Context, prompt string, count int) ([]domain.GeneratedImage, error) {
	f.lastPrompt = prompt
	f.lastCount = count
	if f.err != nil {
		return nil, f.err
	}
	return f.images, nil
}

// drain collects every chunk from a reply stream.
func drain(ch <-chan domain.ChatChunkResponse) []domain.ChatChunkResponse {
	var chunks []domain.ChatChunkResponse
	for c := range ch {
		chunks = append(chunks, c)
	}
	return chunks
}

// finalOf returns the terminal chunk's result, or nil when the stream ended
// without one.
func finalOf(chunks []domain.ChatChunkResponse) *domain.ApproachResponse {
	for _, c := range chunks {
		if c.FinalResult != nil {
			return c.FinalResult
		}
	}
	return nil
}

func streamedText(chunks []domain.ChatChunkResponse) string {
	var text string
	for _, c := range chunks {
		text += c.Text
	}
	return text
}

func chatProfile() domain.ProfileDefinition {
	return domain.ProfileDefinition{ID: "chat", Name: "General Chat", Approach: domain.ApproachChat, SecurityModel: domain.SecurityModelNone}
}

func ragProfile() domain.ProfileDefinition {
	return domain.ProfileDefinition{
		ID: "kb", Name: "Knowledge Base", Approach: domain.ApproachRAG,
		SecurityModel: domain.SecurityModelNone,
		RAGSettings: &domain.RAGSettings{
			IndexName:             "main",
			DocumentCount:         5,
			MaxSourceTokens:       2000,
			CitationUseSourcePage: true,
		},
	}
}

func endpointProfile(approach domain.Approach) domain.ProfileDefinition {
	return domain.ProfileDefinition{
		ID: "ep", Name: "Endpoint Assistant", Approach: approach,
		SecurityModel: domain.SecurityModelNone,
		EndpointSettings: &domain.EndpointSettings{
			EndpointSettingName: "ASSISTANT_ENDPOINT_URL",
			APIKeySettingName:   "ASSISTANT_API_KEY",
		},
	}
}

func chatRequest(question string) domain.ChatRequest {
	return domain.ChatRequest{
		ChatID:      "chat-1",
		MessageID:   "msg-1",
		History:     []domain.ChatTurn{{User: question}},
		OptionFlags: map[string]string{"profile": "chat"},
	}
}
