package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"chat-orchestrator/internal/domain"
)

type documentChunkRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentChunkRepository creates a new DocumentChunkRepository.
func NewDocumentChunkRepository(pool *pgxpool.Pool) domain.DocumentChunkRepository {
	return &documentChunkRepository{pool: pool}
}

func (r *documentChunkRepository) BulkInsertChunks(ctx context.Context, chunks []domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(chunks))
	for i, chunk := range chunks {
		rows[i] = []interface{}{
			chunk.ID,
			chunk.VersionID,
			chunk.Ordinal,
			chunk.Page,
			chunk.Content,
			chunk.Embedding,
			chunk.CreatedAt,
		}
	}

	_, err := executor(ctx, r.pool).CopyFrom(
		ctx,
		pgx.Identifier{"document_chunks"},
		[]string{"id", "version_id", "ordinal", "page", "content", "embedding", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert chunks: %w", err)
	}

	return nil
}

// Search runs a cosine KNN over chunks belonging to current document versions
// in the index. Cosine distance is mapped to a similarity score so higher is
// better, matching the keyword side of hybrid retrieval.
func (r *documentChunkRepository) Search(ctx context.Context, indexName string, queryVector []float32, ownerID string, candidateDocumentIDs []string, limit int) ([]domain.ChunkSearchResult, error) {
	query := `
		SELECT c.id, c.version_id, c.ordinal, c.page, c.content, c.created_at,
		       d.file_name, d.owner_id,
		       1 - (c.embedding <=> $1) AS score
		FROM document_chunks c
		JOIN user_document_versions v ON v.id = c.version_id
		JOIN user_documents d ON d.id = v.document_id AND d.current_version_id = v.id
		WHERE d.index_name = $2
		  AND ($3 = '' OR d.owner_id = $3)
		  AND (cardinality($4::uuid[]) = 0 OR d.id = ANY($4::uuid[]))
		ORDER BY c.embedding <=> $1
		LIMIT $5
	`
	rows, err := executor(ctx, r.pool).Query(ctx, query,
		pgvector.NewVector(queryVector), indexName, ownerID, candidateIDs(candidateDocumentIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// KeywordSearch runs a plain-text match over the same candidate set.
func (r *documentChunkRepository) KeywordSearch(ctx context.Context, indexName, query string, ownerID string, limit int) ([]domain.ChunkSearchResult, error) {
	sql := `
		SELECT c.id, c.version_id, c.ordinal, c.page, c.content, c.created_at,
		       d.file_name, d.owner_id,
		       ts_rank(to_tsvector('simple', c.content), plainto_tsquery('simple', $1)) AS score
		FROM document_chunks c
		JOIN user_document_versions v ON v.id = c.version_id
		JOIN user_documents d ON d.id = v.document_id AND d.current_version_id = v.id
		WHERE d.index_name = $2
		  AND ($3 = '' OR d.owner_id = $3)
		  AND to_tsvector('simple', c.content) @@ plainto_tsquery('simple', $1)
		ORDER BY score DESC
		LIMIT $4
	`
	rows, err := executor(ctx, r.pool).Query(ctx, sql, query, indexName, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to run keyword search: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func candidateIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func scanResults(rows pgx.Rows) ([]domain.ChunkSearchResult, error) {
	var results []domain.ChunkSearchResult
	for rows.Next() {
		var res domain.ChunkSearchResult
		err := rows.Scan(
			&res.Chunk.ID,
			&res.Chunk.VersionID,
			&res.Chunk.Ordinal,
			&res.Chunk.Page,
			&res.Chunk.Content,
			&res.Chunk.CreatedAt,
			&res.FileName,
			&res.OwnerID,
			&res.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}
