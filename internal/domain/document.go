package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// UserDocument is one uploaded document owned by a user.
type UserDocument struct {
	ID               uuid.UUID
	OwnerID          string
	IndexName        string
	FileName         string
	ContentType      string
	CurrentVersionID *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UserDocumentVersion is an immutable indexed version of a document.
type UserDocumentVersion struct {
	ID              uuid.UUID
	DocumentID      uuid.UUID
	VersionNumber   int
	SourceHash      string
	ChunkerVersion  string
	EmbedderVersion string
	PageCount       int
	CreatedAt       time.Time
}

// DocumentChunk is a persistable chunk of an indexed document.
type DocumentChunk struct {
	ID        uuid.UUID
	VersionID uuid.UUID
	Ordinal   int
	Page      int
	Content   string
	Embedding pgvector.Vector
	CreatedAt time.Time
}

// ChunkSearchResult is a chunk found by vector search with its score and the
// document metadata needed to build a citation locator.
type ChunkSearchResult struct {
	Chunk    DocumentChunk
	Score    float32
	FileName string
	OwnerID  string
}

// UserDocumentRepository manages uploaded documents and their versions.
type UserDocumentRepository interface {
	// GetByOwnerAndName returns nil, nil when not found.
	GetByOwnerAndName(ctx context.Context, ownerID, fileName string) (*UserDocument, error)
	CreateDocument(ctx context.Context, doc *UserDocument) error
	UpdateCurrentVersion(ctx context.Context, docID, versionID uuid.UUID) error
	// GetLatestVersion returns nil, nil when no version exists.
	GetLatestVersion(ctx context.Context, docID uuid.UUID) (*UserDocumentVersion, error)
	CreateVersion(ctx context.Context, version *UserDocumentVersion) error
	ListByOwner(ctx context.Context, ownerID string) ([]UserDocument, error)
}

// DocumentChunkRepository manages chunks and vector search over them.
type DocumentChunkRepository interface {
	BulkInsertChunks(ctx context.Context, chunks []DocumentChunk) error
	// Search runs a cosine KNN over current document versions in the index.
	// ownerID and candidateDocumentIDs narrow the candidate set when set.
	Search(ctx context.Context, indexName string, queryVector []float32, ownerID string, candidateDocumentIDs []string, limit int) ([]ChunkSearchResult, error)
	// KeywordSearch runs a plain-text match used by hybrid retrieval.
	KeywordSearch(ctx context.Context, indexName, query string, ownerID string, limit int) ([]ChunkSearchResult, error)
}

// IngestJob is one queued document-indexing request.
type IngestJob struct {
	ID           uuid.UUID
	JobType      string
	Payload      map[string]interface{}
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IngestJobRepository is the persistent job queue feeding the worker.
type IngestJobRepository interface {
	Enqueue(ctx context.Context, job *IngestJob) error
	// AcquireNextJob atomically claims the oldest new job; nil, nil when the
	// queue is empty.
	AcquireNextJob(ctx context.Context) (*IngestJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
}

// TransactionManager runs a function inside one database transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
