package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"chat-orchestrator/internal/adapter/agentapi"
	"chat-orchestrator/internal/adapter/blobstore"
	"chat-orchestrator/internal/adapter/endpointapi"
	"chat-orchestrator/internal/adapter/imageapi"
	"chat-orchestrator/internal/adapter/modelapi"
	"chat-orchestrator/internal/adapter/repository"
	"chat-orchestrator/internal/adapter/tokenizer"
	"chat-orchestrator/internal/domain"
	"chat-orchestrator/internal/infra/config"
	"chat-orchestrator/internal/infra/httpclient"
	"chat-orchestrator/internal/profile"
	"chat-orchestrator/internal/usecase"
	"chat-orchestrator/internal/usecase/retrieval"
	"chat-orchestrator/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	DocRepo   domain.UserDocumentRepository
	ChunkRepo domain.DocumentChunkRepository
	JobRepo   domain.IngestJobRepository
	History   domain.HistoryRecorder

	// Profiles
	Profiles *profile.Store

	// Usecases
	Orchestrator *usecase.Orchestrator
	IndexUsecase *usecase.IndexUserDocumentUsecase

	// Worker
	Worker *worker.JobWorker

	// Adapters exposed for handler wiring
	Blobs *blobstore.Client
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	// Repositories
	docRepo := repository.NewUserDocumentRepository(pool)
	chunkRepo := repository.NewDocumentChunkRepository(pool)
	jobRepo := repository.NewIngestJobRepository(pool)
	historyRepo := repository.NewChatHistoryRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	// Shared HTTP clients with connection pooling. Streaming clients carry no
	// overall timeout; the request context bounds them.
	pooledHTTP := httpclient.NewPooledClient(30 * time.Second)
	streamingHTTP := httpclient.NewStreamingClient()

	// External clients
	generator := modelapi.NewOllamaGenerator(cfg.Model.URL, cfg.Model.ChatModel, streamingHTTP)
	embedder := modelapi.NewOllamaEmbedder(cfg.Model.URL, cfg.Model.EmbeddingModel, pooledHTTP)
	endpointClient := endpointapi.NewClient(streamingHTTP, float64(cfg.Endpoint.RequestsPerSecond), cfg.Endpoint.Burst)

	// Token counting for the retrieval source budget. The tiktoken vocabulary
	// is fetched over the network on first load; degrade to word counts when
	// that fails instead of refusing to boot.
	var counter domain.TokenCounter
	counter, err := tokenizer.NewCounter(cfg.Model.TokenizerEncoding)
	if err != nil {
		log.Warn("tokenizer unavailable, falling back to word counts", slog.Any("error", err))
		counter = tokenizer.WordCounter{}
	}

	// Profiles
	profileLoader := profile.NewLoader(pooledHTTP, cfg.Profiles.BlobURL, cfg.Profiles.InlineBase64, log)
	profileStore := profile.NewStore(profileLoader, log)

	// Retrieval
	searcher := retrieval.NewSearcher(embedder, chunkRepo, counter, retrieval.Config{
		CacheSize: cfg.Cache.Size,
		CacheTTL:  time.Duration(cfg.Cache.TTL) * time.Minute,
	}, log)

	// Approach services
	prompts := usecase.NewPromptBuilder()
	settings := config.EnvSettings{}
	var tokens domain.TokenProvider
	if cfg.Endpoint.StaticBearerToken != "" {
		tokens = config.StaticTokenProvider{TokenValue: cfg.Endpoint.StaticBearerToken}
	}
	ragDefaults := usecase.RAGDefaults{
		IndexName:       cfg.Chat.DefaultIndexName,
		DocumentCount:   cfg.Chat.DefaultDocumentCount,
		MaxSourceTokens: cfg.Chat.DefaultMaxSourceTokens,
	}
	maxAnswerTokens := cfg.Chat.DefaultMaxAnswerTokens

	services := usecase.Services{
		Direct:           usecase.NewDirectChatService(generator, prompts, maxAnswerTokens, log),
		RAG:              usecase.NewRAGChatService(generator, searcher, prompts, ragDefaults, false, maxAnswerTokens, log),
		UserDocumentChat: usecase.NewRAGChatService(generator, searcher, prompts, ragDefaults, true, maxAnswerTokens, log),
		EndpointV1:       usecase.NewEndpointAssistantService(endpointClient, settings, tokens, prompts, domain.EndpointDialectV1, log),
		EndpointV2:       usecase.NewEndpointAssistantService(endpointClient, settings, tokens, prompts, domain.EndpointDialectV2, log),
		Task:             usecase.NewEndpointTaskService(endpointClient, settings, tokens, log),
	}
	if cfg.Agent.BaseURL != "" {
		agentClient := agentapi.NewClient(cfg.Agent.BaseURL, settings.Setting("AGENT_API_KEY"), streamingHTTP)
		pollInterval := time.Duration(cfg.Agent.PollIntervalSeconds) * time.Second
		services.Agent = usecase.NewAgentChatService(agentClient, cfg.Agent.AgentID, pollInterval, log)
	}
	if cfg.Image.URL != "" {
		imageClient := imageapi.NewClient(cfg.Image.URL, cfg.Image.Model, pooledHTTP)
		services.Image = usecase.NewImageChatService(imageClient, log)
	}

	orchestrator := usecase.NewOrchestrator(profileStore, usecase.NewResolver(services), historyRepo, log)

	// Ingestion
	indexUsecase := usecase.NewIndexUserDocumentUsecase(
		docRepo, chunkRepo, jobRepo, txManager,
		domain.NewChunker(), domain.NewSourceHashPolicy(), embedder, log,
	)

	// Worker
	pollInterval := time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second
	jobWorker := worker.NewJobWorker(jobRepo, indexUsecase, pollInterval, log)

	var blobs *blobstore.Client
	if cfg.Blob.BaseURL != "" {
		blobs = blobstore.NewClient(cfg.Blob.BaseURL, cfg.Blob.Container, pooledHTTP)
	}

	return &ApplicationComponents{
		DocRepo:      docRepo,
		ChunkRepo:    chunkRepo,
		JobRepo:      jobRepo,
		History:      historyRepo,
		Profiles:     profileStore,
		Orchestrator: orchestrator,
		IndexUsecase: indexUsecase,
		Worker:       jobWorker,
		Blobs:        blobs,
	}
}
