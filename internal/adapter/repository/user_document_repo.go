package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-orchestrator/internal/domain"
)

type userDocumentRepository struct {
	pool *pgxpool.Pool
}

// NewUserDocumentRepository creates a new UserDocumentRepository.
func NewUserDocumentRepository(pool *pgxpool.Pool) domain.UserDocumentRepository {
	return &userDocumentRepository{pool: pool}
}

func (r *userDocumentRepository) GetByOwnerAndName(ctx context.Context, ownerID, fileName string) (*domain.UserDocument, error) {
	query := `
		SELECT id, owner_id, index_name, file_name, content_type, current_version_id, created_at, updated_at
		FROM user_documents
		WHERE owner_id = $1 AND file_name = $2
	`
	row := executor(ctx, r.pool).QueryRow(ctx, query, ownerID, fileName)

	var doc domain.UserDocument
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.IndexName, &doc.FileName, &doc.ContentType, &doc.CurrentVersionID, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	return &doc, nil
}

func (r *userDocumentRepository) CreateDocument(ctx context.Context, doc *domain.UserDocument) error {
	query := `
		INSERT INTO user_documents (id, owner_id, index_name, file_name, content_type, current_version_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := executor(ctx, r.pool).Exec(ctx, query,
		doc.ID, doc.OwnerID, doc.IndexName, doc.FileName, doc.ContentType, doc.CurrentVersionID, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *userDocumentRepository) UpdateCurrentVersion(ctx context.Context, docID, versionID uuid.UUID) error {
	query := `
		UPDATE user_documents
		SET current_version_id = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := executor(ctx, r.pool).Exec(ctx, query, versionID, docID)
	if err != nil {
		return fmt.Errorf("failed to update current version: %w", err)
	}
	return nil
}

func (r *userDocumentRepository) GetLatestVersion(ctx context.Context, docID uuid.UUID) (*domain.UserDocumentVersion, error) {
	query := `
		SELECT id, document_id, version_number, source_hash, chunker_version, embedder_version, page_count, created_at
		FROM user_document_versions
		WHERE document_id = $1
		ORDER BY version_number DESC
		LIMIT 1
	`
	row := executor(ctx, r.pool).QueryRow(ctx, query, docID)

	var ver domain.UserDocumentVersion
	err := row.Scan(&ver.ID, &ver.DocumentID, &ver.VersionNumber, &ver.SourceHash, &ver.ChunkerVersion, &ver.EmbedderVersion, &ver.PageCount, &ver.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan version: %w", err)
	}
	return &ver, nil
}

func (r *userDocumentRepository) CreateVersion(ctx context.Context, version *domain.UserDocumentVersion) error {
	query := `
		INSERT INTO user_document_versions (id, document_id, version_number, source_hash, chunker_version, embedder_version, page_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := executor(ctx, r.pool).Exec(ctx, query,
		version.ID, version.DocumentID, version.VersionNumber, version.SourceHash, version.ChunkerVersion, version.EmbedderVersion, version.PageCount, version.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}
	return nil
}

func (r *userDocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.UserDocument, error) {
	query := `
		SELECT id, owner_id, index_name, file_name, content_type, current_version_id, created_at, updated_at
		FROM user_documents
		WHERE owner_id = $1
		ORDER BY file_name ASC
	`
	rows, err := executor(ctx, r.pool).Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.UserDocument
	for rows.Next() {
		var doc domain.UserDocument
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.IndexName, &doc.FileName, &doc.ContentType, &doc.CurrentVersionID, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return docs, nil
}
