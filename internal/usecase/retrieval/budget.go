package retrieval

import (
	"chat-orchestrator/internal/domain"
)

// FilterByTokenBudget keeps the longest ranked prefix of sources whose token
// counts fit within maxTokens. The scan stops at the first source that would
// overflow the budget; lower-ranked sources are never promoted past it, so
// the model always sees the best sources in rank order.
func FilterByTokenBudget(sources []domain.KnowledgeSource, maxTokens int, counter domain.TokenCounter) []domain.KnowledgeSource {
	if maxTokens <= 0 {
		return sources
	}

	used := 0
	for i, src := range sources {
		cost := counter.Count(src.Content)
		if used+cost > maxTokens {
			return sources[:i]
		}
		used += cost
	}
	return sources
}
