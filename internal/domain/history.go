package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChatHistoryEntry is one persisted, completed turn.
type ChatHistoryEntry struct {
	ID        uuid.UUID
	UserID    string
	ChatID    string
	MessageID string
	Profile   string
	Prompt    string
	Answer    string
	Citations []SupportingContentRecord
	ThreadID  string
	Rating    *int
	CreatedAt time.Time
}

// HistoryPage is a paginated history read-back.
type HistoryPage struct {
	Entries []ChatHistoryEntry
	Total   int
	Offset  int
	Limit   int
}

// HistoryRecorder persists completed turns and serves the read side of chat
// history. Recording happens once per turn, after the stream has delivered
// its terminal chunk.
type HistoryRecorder interface {
	Record(ctx context.Context, user UserContext, req ChatRequest, result ApproachResponse) error
	ListRecent(ctx context.Context, userID string, limit int) ([]ChatHistoryEntry, error)
	ListPage(ctx context.Context, userID string, offset, limit int) (*HistoryPage, error)
	ListByChat(ctx context.Context, userID, chatID string) ([]ChatHistoryEntry, error)
	Rate(ctx context.Context, userID, messageID string, rating int, feedback string) error
}
