package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-orchestrator/internal/domain"
)

func TestPromptBuilder_ChatShape(t *testing.T) {
	req := domain.ChatRequest{History: []domain.ChatTurn{
		{User: "first question", Assistant: "first answer"},
		{User: "second question"},
	}}

	messages := NewPromptBuilder().BuildChat(chatProfile(), req)

	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "first question", messages[1].Content)
	assert.Equal(t, "assistant", messages[2].Role)
	assert.Equal(t, "user", messages[3].Role)
	assert.Equal(t, "second question", messages[3].Content)
}

func TestPromptBuilder_RAGIncludesSourcesWithLocators(t *testing.T) {
	req := domain.ChatRequest{History: []domain.ChatTurn{{User: "policy?"}}}
	sources := []domain.KnowledgeSource{
		{Locator: "handbook.pdf#page=3", Content: "Expenses are reimbursed monthly."},
	}

	messages := NewPromptBuilder().BuildRAG(ragProfile(), req, sources)

	require.NotEmpty(t, messages)
	system := messages[0].Content
	assert.Contains(t, system, "[handbook.pdf#page=3] Expenses are reimbursed monthly.")
}

func TestPromptBuilder_ProfileTemplateOverridesSystemPrompt(t *testing.T) {
	p := chatProfile()
	p.PromptTemplates = map[string]string{"system": "You answer only about {topic}."}
	req := domain.ChatRequest{
		History:       []domain.ChatTurn{{User: "q"}},
		UserSelection: &domain.UserSelectionModel{Options: map[string]string{"topic": "payroll"}},
	}

	messages := NewPromptBuilder().BuildChat(p, req)

	assert.Equal(t, "You answer only about payroll.", messages[0].Content)
}

func TestPromptBuilder_HistoryWindowIsBounded(t *testing.T) {
	var history []domain.ChatTurn
	for i := 0; i < 30; i++ {
		history = append(history, domain.ChatTurn{User: "old question", Assistant: "old answer"})
	}
	history = append(history, domain.ChatTurn{User: "current question"})

	messages := NewPromptBuilder().BuildChat(chatProfile(), domain.ChatRequest{History: history})

	// system + bounded replayed turns + current question
	assert.Len(t, messages, 1+2*maxHistoryTurns+1)
	assert.Equal(t, "current question", messages[len(messages)-1].Content)
}
