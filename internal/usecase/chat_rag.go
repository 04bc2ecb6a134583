package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-orchestrator/internal/domain"
)

// RAGDefaults fill in retrieval parameters a profile leaves at zero.
type RAGDefaults struct {
	IndexName       string
	DocumentCount   int
	MaxSourceTokens int
}

// RAGChatService answers with retrieval-augmented generation. With owner
// scoping enabled it searches only the requesting user's documents,
// optionally narrowed to the documents selected in the request.
type RAGChatService struct {
	llm         domain.LLMClient
	retriever   domain.KnowledgeRetriever
	prompts     *PromptBuilder
	defaults    RAGDefaults
	ownerScoped bool
	maxTokens   int
	logger      *slog.Logger
}

func NewRAGChatService(
	llm domain.LLMClient,
	retriever domain.KnowledgeRetriever,
	prompts *PromptBuilder,
	defaults RAGDefaults,
	ownerScoped bool,
	maxTokens int,
	logger *slog.Logger,
) *RAGChatService {
	return &RAGChatService{
		llm:         llm,
		retriever:   retriever,
		prompts:     prompts,
		defaults:    defaults,
		ownerScoped: ownerScoped,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

func (s *RAGChatService) Reply(ctx context.Context, user domain.UserContext, profile domain.ProfileDefinition, req domain.ChatRequest) <-chan domain.ChatChunkResponse {
	out := make(chan domain.ChatChunkResponse, 4)
	go func() {
		defer close(out)

		retrievalStart := time.Now()
		opts := s.searchOptions(user, profile, req)

		sources, err := s.retriever.Search(ctx, req.Question(), opts)
		if err != nil {
			s.logger.Error("retrieval failed",
				slog.String("profile", profile.Name),
				slog.String("index", opts.IndexName),
				slog.Any("error", err))
			sendChunk(ctx, out, terminalError(profile, req, "Searching the knowledge base failed. Please try again shortly."))
			return
		}
		retrievalElapsed := time.Since(retrievalStart)

		generationStart := time.Now()
		messages := s.prompts.BuildRAG(profile, req, sources)

		chunkCh, errCh, err := s.llm.ChatStream(ctx, messages, maxTokensFor(req, s.maxTokens))
		if err != nil {
			s.logger.Error("rag stream setup failed",
				slog.String("profile", profile.Name), slog.Any("error", err))
			sendChunk(ctx, out, terminalError(profile, req, modelUnavailableMessage))
			return
		}

		answer, streamErr, outcome := forwardModelStream(ctx, out, chunkCh, errCh)
		switch outcome {
		case streamCanceled:
			return
		case streamFailed:
			s.logger.Error("rag stream failed",
				slog.String("profile", profile.Name), slog.Any("error", streamErr))
			sendChunk(ctx, out, terminalError(profile, req, modelUnavailableMessage))
			return
		}

		respCtx := newResponseContext(profile, req)
		respCtx.DataPoints = dataPoints(sources)
		respCtx.Thoughts = []domain.ThoughtRecord{
			{
				Title:       "Retrieve sources",
				Description: fmt.Sprintf("index %s, %d sources", opts.IndexName, len(sources)),
				ElapsedMs:   retrievalElapsed.Milliseconds(),
			},
			{
				Title:       "Generate answer",
				Description: "model " + s.llm.Version(),
				ElapsedMs:   time.Since(generationStart).Milliseconds(),
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

func (s *RAGChatService) searchOptions(user domain.UserContext, profile domain.ProfileDefinition, req domain.ChatRequest) domain.SearchOptions {
	opts := domain.SearchOptions{
		IndexName:       s.defaults.IndexName,
		TopK:            s.defaults.DocumentCount,
		MaxSourceTokens: s.defaults.MaxSourceTokens,
	}
	if rs := profile.RAGSettings; rs != nil {
		if rs.IndexName != "" {
			opts.IndexName = rs.IndexName
		}
		if rs.DocumentCount > 0 {
			opts.TopK = rs.DocumentCount
		}
		if rs.MaxSourceTokens > 0 {
			opts.MaxSourceTokens = rs.MaxSourceTokens
		}
		opts.UseSourcePage = rs.CitationUseSourcePage
	}
	if req.Overrides != nil && req.Overrides.TopK != nil && *req.Overrides.TopK > 0 {
		opts.TopK = *req.Overrides.TopK
	}
	if s.ownerScoped {
		opts.OwnerID = user.ID
		opts.CandidateDocumentIDs = req.SelectedDocuments
	}
	return opts
}

func dataPoints(sources []domain.KnowledgeSource) []domain.SupportingContentRecord {
	points := make([]domain.SupportingContentRecord, 0, len(sources))
	for _, src := range sources {
		points = append(points, domain.SupportingContentRecord{
			Title:      src.Locator,
			Content:    src.Content,
			SourceType: "text",
			ID:         src.Locator,
		})
	}
	return points
}
