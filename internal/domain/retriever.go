package domain

import "context"

// SearchOptions bound one retrieval call.
type SearchOptions struct {
	IndexName       string
	TopK            int
	MaxSourceTokens int
	UseSourcePage   bool
	// OwnerID scopes retrieval to one user's documents (user-document chat).
	OwnerID string
	// CandidateDocumentIDs, when non-empty, restricts the search to the
	// client-selected documents.
	CandidateDocumentIDs []string
}

// KnowledgeRetriever returns a bounded, token-budgeted, ranked list of
// knowledge sources for a query.
type KnowledgeRetriever interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]KnowledgeSource, error)
}
