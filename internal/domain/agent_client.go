package domain

import "context"

// Vector store provisioning states reported by the agent service.
const (
	VectorStoreStatusInProgress = "in_progress"
	VectorStoreStatusCompleted  = "completed"
	VectorStoreStatusFailed     = "failed"
)

// AgentThread references server-side conversation state owned by the agent
// service. The orchestrator only threads the ids through; it never mutates
// the underlying resources.
type AgentThread struct {
	ID            string
	VectorStoreID string
}

// VectorStore is the provisioning view of a server-side file index.
type VectorStore struct {
	ID     string
	Status string
}

// Agent stream event kinds.
const (
	AgentEventText       = "text"
	AgentEventCode       = "code"
	AgentEventAnnotation = "annotation"
	AgentEventFile       = "file"
	AgentEventDone       = "done"
)

// AgentStreamEvent is one event from a streamed agent run.
//
// Text events carry visible output; code events carry tool output that is
// bookkept but not shown. Annotation events cite a span of the accumulated
// output ([Start,End) rune offsets) against a source file. File events
// reference a generated file (typically an image) by id.
type AgentStreamEvent struct {
	Kind     string
	Text     string
	FileID   string
	FileName string
	Start    int
	End      int
}

// AgentClient talks to a hosted agent service that owns threads, vector
// stores, and file storage.
type AgentClient interface {
	CreateThread(ctx context.Context) (*AgentThread, error)
	GetThread(ctx context.Context, threadID string) (*AgentThread, error)
	UploadFile(ctx context.Context, name, contentType string, data []byte) (string, error)
	CreateVectorStore(ctx context.Context, threadID string, fileIDs []string) (*VectorStore, error)
	GetVectorStore(ctx context.Context, storeID string) (*VectorStore, error)
	AddFilesToVectorStore(ctx context.Context, storeID string, fileIDs []string) error
	FileContentURL(fileID string) string
	// StreamRun starts a generation run on the thread and streams its events.
	// Both channels close when the run ends.
	StreamRun(ctx context.Context, agentID, threadID, prompt string) (<-chan AgentStreamEvent, <-chan error, error)
}
