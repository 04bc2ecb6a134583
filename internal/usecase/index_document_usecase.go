package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"chat-orchestrator/internal/domain"
)

// JobTypeIndexDocument is the queue job type for user document indexing.
const JobTypeIndexDocument = "index_user_document"

// IndexDocumentInput is one document to index for one owner.
type IndexDocumentInput struct {
	OwnerID     string
	IndexName   string
	FileName    string
	ContentType string
	Body        string
}

// IndexUserDocumentUsecase ingests an uploaded document: chunk, embed, and
// store a new immutable version. Re-uploading unchanged content is a no-op,
// decided by the source hash.
type IndexUserDocumentUsecase struct {
	docs    domain.UserDocumentRepository
	chunks  domain.DocumentChunkRepository
	jobs    domain.IngestJobRepository
	tx      domain.TransactionManager
	chunker domain.Chunker
	hasher  domain.SourceHashPolicy
	encoder domain.VectorEncoder
	logger  *slog.Logger
}

func NewIndexUserDocumentUsecase(
	docs domain.UserDocumentRepository,
	chunks domain.DocumentChunkRepository,
	jobs domain.IngestJobRepository,
	tx domain.TransactionManager,
	chunker domain.Chunker,
	hasher domain.SourceHashPolicy,
	encoder domain.VectorEncoder,
	logger *slog.Logger,
) *IndexUserDocumentUsecase {
	return &IndexUserDocumentUsecase{
		docs:    docs,
		chunks:  chunks,
		jobs:    jobs,
		tx:      tx,
		chunker: chunker,
		hasher:  hasher,
		encoder: encoder,
		logger:  logger,
	}
}

// Enqueue queues the document for background indexing and returns the job id.
func (u *IndexUserDocumentUsecase) Enqueue(ctx context.Context, input IndexDocumentInput) (uuid.UUID, error) {
	job := &domain.IngestJob{
		ID:      uuid.New(),
		JobType: JobTypeIndexDocument,
		Payload: map[string]interface{}{
			"owner_id":     input.OwnerID,
			"index_name":   input.IndexName,
			"file_name":    input.FileName,
			"content_type": input.ContentType,
			"body":         input.Body,
		},
		Status: "new",
	}
	if err := u.jobs.Enqueue(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue index job: %w", err)
	}
	return job.ID, nil
}

// ExecuteJob unpacks a queued job and runs the indexing.
func (u *IndexUserDocumentUsecase) ExecuteJob(ctx context.Context, job *domain.IngestJob) error {
	input := IndexDocumentInput{
		OwnerID:     payloadString(job.Payload, "owner_id"),
		IndexName:   payloadString(job.Payload, "index_name"),
		FileName:    payloadString(job.Payload, "file_name"),
		ContentType: payloadString(job.Payload, "content_type"),
		Body:        payloadString(job.Payload, "body"),
	}
	if input.OwnerID == "" || input.FileName == "" {
		return fmt.Errorf("job %s has incomplete payload", job.ID)
	}
	return u.Execute(ctx, input)
}

// Execute runs the full pipeline. Chunking and embedding happen outside the
// transaction; only the version bookkeeping and chunk insert are
// transactional, so a crash can never leave a half-visible version.
func (u *IndexUserDocumentUsecase) Execute(ctx context.Context, input IndexDocumentInput) error {
	sourceHash := u.hasher.Compute(input.FileName, input.Body)

	chunks, err := u.chunker.Chunk(input.Body)
	if err != nil {
		return fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("document %q produced no chunks", input.FileName)
	}

	contents := make([]string, len(chunks))
	pageCount := 0
	for i, c := range chunks {
		contents[i] = c.Content
		if c.Page > pageCount {
			pageCount = c.Page
		}
	}

	embeddings, err := u.encoder.Encode(ctx, contents)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	return u.tx.RunInTx(ctx, func(txCtx context.Context) error {
		doc, err := u.docs.GetByOwnerAndName(txCtx, input.OwnerID, input.FileName)
		if err != nil {
			return fmt.Errorf("lookup document: %w", err)
		}
		if doc == nil {
			doc = &domain.UserDocument{
				ID:          uuid.New(),
				OwnerID:     input.OwnerID,
				IndexName:   input.IndexName,
				FileName:    input.FileName,
				ContentType: input.ContentType,
				CreatedAt:   time.Now(),
			}
			if err := u.docs.CreateDocument(txCtx, doc); err != nil {
				return fmt.Errorf("create document: %w", err)
			}
		}

		latest, err := u.docs.GetLatestVersion(txCtx, doc.ID)
		if err != nil {
			return fmt.Errorf("lookup latest version: %w", err)
		}
		if latest != nil && latest.SourceHash == sourceHash {
			u.logger.Info("document unchanged, skipping reindex",
				slog.String("owner_id", input.OwnerID),
				slog.String("file_name", input.FileName))
			return nil
		}

		versionNumber := 1
		if latest != nil {
			versionNumber = latest.VersionNumber + 1
		}
		version := &domain.UserDocumentVersion{
			ID:              uuid.New(),
			DocumentID:      doc.ID,
			VersionNumber:   versionNumber,
			SourceHash:      sourceHash,
			ChunkerVersion:  string(u.chunker.Version()),
			EmbedderVersion: u.encoder.Version(),
			PageCount:       pageCount,
			CreatedAt:       time.Now(),
		}
		if err := u.docs.CreateVersion(txCtx, version); err != nil {
			return fmt.Errorf("create version: %w", err)
		}

		rows := make([]domain.DocumentChunk, len(chunks))
		for i, c := range chunks {
			rows[i] = domain.DocumentChunk{
				ID:        uuid.New(),
				VersionID: version.ID,
				Ordinal:   c.Ordinal,
				Page:      c.Page,
				Content:   c.Content,
				Embedding: pgvector.NewVector(embeddings[i]),
			}
		}
		if err := u.chunks.BulkInsertChunks(txCtx, rows); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}

		if err := u.docs.UpdateCurrentVersion(txCtx, doc.ID, version.ID); err != nil {
			return fmt.Errorf("update current version: %w", err)
		}

		u.logger.Info("document indexed",
			slog.String("owner_id", input.OwnerID),
			slog.String("file_name", input.FileName),
			slog.Int("version", versionNumber),
			slog.Int("chunks", len(rows)))
		return nil
	})
}

func payloadString(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
