package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-orchestrator/internal/domain"
)

type chatHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewChatHistoryRepository creates a new chat history recorder backed by
// Postgres. Citations are stored as JSONB alongside the turn.
func NewChatHistoryRepository(pool *pgxpool.Pool) domain.HistoryRecorder {
	return &chatHistoryRepository{pool: pool}
}

func (r *chatHistoryRepository) Record(ctx context.Context, user domain.UserContext, req domain.ChatRequest, result domain.ApproachResponse) error {
	citations, err := json.Marshal(result.Context.DataPoints)
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}

	query := `
		INSERT INTO chat_history (id, user_id, chat_id, message_id, profile, prompt, answer, citations, thread_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = executor(ctx, r.pool).Exec(ctx, query,
		uuid.New(),
		user.ID,
		req.ChatID,
		req.MessageID,
		result.Context.Profile,
		req.Question(),
		result.Answer,
		citations,
		result.Context.ThreadID,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record chat turn: %w", err)
	}
	return nil
}

func (r *chatHistoryRepository) ListRecent(ctx context.Context, userID string, limit int) ([]domain.ChatHistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := selectColumns + `
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := executor(ctx, r.pool).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *chatHistoryRepository) ListPage(ctx context.Context, userID string, offset, limit int) (*domain.HistoryPage, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM chat_history WHERE user_id = $1`
	if err := executor(ctx, r.pool).QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}

	query := selectColumns + `
		WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`
	rows, err := executor(ctx, r.pool).Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history page: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	return &domain.HistoryPage{Entries: entries, Total: total, Offset: offset, Limit: limit}, nil
}

func (r *chatHistoryRepository) ListByChat(ctx context.Context, userID, chatID string) ([]domain.ChatHistoryEntry, error) {
	query := selectColumns + `
		WHERE user_id = $1 AND chat_id = $2
		ORDER BY created_at ASC
	`
	rows, err := executor(ctx, r.pool).Query(ctx, query, userID, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Rate attaches a rating and optional feedback to a turn. Scoping the update
// by user id keeps one user from rating another user's turns.
func (r *chatHistoryRepository) Rate(ctx context.Context, userID, messageID string, rating int, feedback string) error {
	query := `
		UPDATE chat_history
		SET rating = $1, feedback = $2
		WHERE user_id = $3 AND message_id = $4
	`
	tag, err := executor(ctx, r.pool).Exec(ctx, query, rating, feedback, userID, messageID)
	if err != nil {
		return fmt.Errorf("failed to rate turn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no turn found for message %s", messageID)
	}
	return nil
}

const selectColumns = `
	SELECT id, user_id, chat_id, message_id, profile, prompt, answer, citations, thread_id, rating, created_at
	FROM chat_history
`

func scanEntries(rows pgx.Rows) ([]domain.ChatHistoryEntry, error) {
	var entries []domain.ChatHistoryEntry
	for rows.Next() {
		var entry domain.ChatHistoryEntry
		var citations []byte
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.ChatID,
			&entry.MessageID,
			&entry.Profile,
			&entry.Prompt,
			&entry.Answer,
			&citations,
			&entry.ThreadID,
			&entry.Rating,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if len(citations) > 0 {
			if err := json.Unmarshal(citations, &entry.Citations); err != nil {
				return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}
