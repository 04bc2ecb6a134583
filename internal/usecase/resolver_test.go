package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-orchestrator/internal/domain"
)

type stubService struct{ name string }

func (s *stubService) Reply(ctx context.Context, user domain.UserContext, profile domain.ProfileDefinition, req domain.ChatRequest) <-chan domain.ChatChunkResponse {
	out := make(chan domain.ChatChunkResponse, 1)
	out <- domain.ChatChunkResponse{FinalResult: &domain.ApproachResponse{Answer: s.name, Context: newResponseContext(profile, req)}}
	close(out)
	return out
}

func fullServices() Services {
	return Services{
		Direct:           &stubService{name: "direct"},
		RAG:              &stubService{name: "rag"},
		UserDocumentChat: &stubService{name: "user-docs"},
		EndpointV1:       &stubService{name: "endpoint-v1"},
		EndpointV2:       &stubService{name: "endpoint-v2"},
		Task:             &stubService{name: "task"},
		Agent:            &stubService{name: "agent"},
		Image:            &stubService{name: "image"},
	}
}

func TestResolver_EveryApproachMapsToItsService(t *testing.T) {
	resolver := NewResolver(fullServices())

	tests := []struct {
		approach domain.Approach
		want     string
	}{
		{domain.ApproachChat, "direct"},
		{domain.ApproachRAG, "rag"},
		{domain.ApproachUserDocumentChat, "user-docs"},
		{domain.ApproachEndpointAssistant, "endpoint-v1"},
		{domain.ApproachEndpointAssistantV2, "endpoint-v2"},
		{domain.ApproachEndpointTask, "task"},
		{domain.ApproachAzureAIAgent, "agent"},
		{domain.ApproachImage, "image"},
	}

	for _, tt := range tests {
		t.Run(string(tt.approach), func(t *testing.T) {
			p := domain.ProfileDefinition{ID: "p", Name: "P", Approach: tt.approach}
			if p.RequiresRAGSettings() {
				p.RAGSettings = &domain.RAGSettings{IndexName: "main"}
			}
			if p.RequiresEndpointSettings() {
				p.EndpointSettings = &domain.EndpointSettings{EndpointSettingName: "URL"}
			}

			service, err := resolver.Resolve(p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, service.(*stubService).name)
		})
	}
}

func TestResolver_UnknownApproach(t *testing.T) {
	resolver := NewResolver(fullServices())

	_, err := resolver.Resolve(domain.ProfileDefinition{ID: "p", Name: "P", Approach: "teleport"})

	assert.ErrorIs(t, err, domain.ErrApproachNotConfigured)
}

func TestResolver_MissingBackendIsNotConfigured(t *testing.T) {
	services := fullServices()
	services.Agent = nil
	resolver := NewResolver(services)

	_, err := resolver.Resolve(domain.ProfileDefinition{ID: "p", Name: "P", Approach: domain.ApproachAzureAIAgent})

	assert.ErrorIs(t, err, domain.ErrApproachNotConfigured)
}

func TestResolver_MissingRequiredSettings(t *testing.T) {
	resolver := NewResolver(fullServices())

	_, err := resolver.Resolve(domain.ProfileDefinition{ID: "p", Name: "P", Approach: domain.ApproachRAG})
	assert.ErrorIs(t, err, domain.ErrApproachNotConfigured)

	_, err = resolver.Resolve(domain.ProfileDefinition{ID: "p", Name: "P", Approach: domain.ApproachEndpointTask})
	assert.ErrorIs(t, err, domain.ErrApproachNotConfigured)
}
