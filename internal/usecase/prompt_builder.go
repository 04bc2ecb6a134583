package usecase

import (
	"fmt"
	"strings"

	"chat-orchestrator/internal/domain"
)

const defaultChatSystemPrompt = `You are a helpful assistant. Answer the user's question clearly and concisely.`

const defaultRAGSystemPrompt = `You are a helpful assistant answering questions from the provided sources.
Each source starts with its locator in square brackets. Answer using only the
sources; cite the locator of every source you use, e.g. [handbook.pdf#page=3].
If the sources do not contain the answer, say you do not know.`

// maxHistoryTurns bounds how much conversation history is replayed to the
// model.
const maxHistoryTurns = 10

// PromptBuilder assembles chat-formatted messages from a profile, a request,
// and optionally retrieved sources.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildChat renders a plain conversation with no retrieval context.
func (b *PromptBuilder) BuildChat(profile domain.ProfileDefinition, req domain.ChatRequest) []domain.Message {
	system := b.systemPrompt(profile, req, defaultChatSystemPrompt)
	return b.assemble(system, req)
}

// BuildRAG renders a grounded conversation: the system prompt carries the
// retrieved sources, each prefixed with its citation locator.
func (b *PromptBuilder) BuildRAG(profile domain.ProfileDefinition, req domain.ChatRequest, sources []domain.KnowledgeSource) []domain.Message {
	system := b.systemPrompt(profile, req, defaultRAGSystemPrompt)

	var sb strings.Builder
	sb.WriteString(system)
	sb.WriteString("\n\nSources:\n")
	if len(sources) == 0 {
		sb.WriteString("(no sources found)\n")
	}
	for _, src := range sources {
		fmt.Fprintf(&sb, "[%s] %s\n", src.Locator, src.Content)
	}

	return b.assemble(sb.String(), req)
}

// systemPrompt picks the profile's template over the fallback and
// interpolates the client's named selections.
func (b *PromptBuilder) systemPrompt(profile domain.ProfileDefinition, req domain.ChatRequest, fallback string) string {
	system := fallback
	if tmpl, ok := profile.PromptTemplates["system"]; ok && tmpl != "" {
		system = tmpl
	}
	if req.UserSelection != nil {
		for key, value := range req.UserSelection.Options {
			system = strings.ReplaceAll(system, "{"+key+"}", value)
		}
	}
	return system
}

func (b *PromptBuilder) assemble(system string, req domain.ChatRequest) []domain.Message {
	messages := make([]domain.Message, 0, 2+2*len(req.History))
	messages = append(messages, domain.Message{Role: "system", Content: system})

	history := req.History
	if len(history) > 0 {
		// The last turn is the open question; earlier turns are replayed.
		history = history[:len(history)-1]
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, turn := range history {
		if turn.User != "" {
			messages = append(messages, domain.Message{Role: "user", Content: turn.User})
		}
		if turn.Assistant != "" {
			messages = append(messages, domain.Message{Role: "assistant", Content: turn.Assistant})
		}
	}

	messages = append(messages, domain.Message{Role: "user", Content: req.Question()})
	return messages
}
