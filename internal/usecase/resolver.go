package usecase

import (
	"fmt"

	"chat-orchestrator/internal/domain"
)

// Services carries one ChatService per approach. A nil entry means this
// deployment has no backing client for that approach; profiles declaring it
// resolve to ErrApproachNotConfigured instead of panicking at stream time.
type Services struct {
	Direct           ChatService
	RAG              ChatService
	UserDocumentChat ChatService
	EndpointV1       ChatService
	EndpointV2       ChatService
	Task             ChatService
	Agent            ChatService
	Image            ChatService
}

// Resolver maps a resolved profile to the service implementing its approach.
type Resolver struct {
	services Services
}

func NewResolver(services Services) *Resolver {
	return &Resolver{services: services}
}

// Resolve validates the profile's settings and picks its service. The switch
// is exhaustive over the declared approaches; anything else is a
// configuration error, never a fallback to a different approach.
func (r *Resolver) Resolve(profile domain.ProfileDefinition) (ChatService, error) {
	if profile.RequiresRAGSettings() && profile.RAGSettings == nil {
		return nil, fmt.Errorf("profile %q lacks rag settings: %w", profile.Name, domain.ErrApproachNotConfigured)
	}
	if profile.RequiresEndpointSettings() && profile.EndpointSettings == nil {
		return nil, fmt.Errorf("profile %q lacks endpoint settings: %w", profile.Name, domain.ErrApproachNotConfigured)
	}

	var service ChatService
	switch profile.Approach {
	case domain.ApproachChat:
		service = r.services.Direct
	case domain.ApproachRAG:
		service = r.services.RAG
	case domain.ApproachUserDocumentChat:
		service = r.services.UserDocumentChat
	case domain.ApproachEndpointAssistant:
		service = r.services.EndpointV1
	case domain.ApproachEndpointAssistantV2:
		service = r.services.EndpointV2
	case domain.ApproachEndpointTask:
		service = r.services.Task
	case domain.ApproachAzureAIAgent:
		service = r.services.Agent
	case domain.ApproachImage:
		service = r.services.Image
	default:
		return nil, fmt.Errorf("unknown approach %q: %w", profile.Approach, domain.ErrApproachNotConfigured)
	}

	if service == nil {
		return nil, fmt.Errorf("approach %q has no configured backend: %w", profile.Approach, domain.ErrApproachNotConfigured)
	}
	return service, nil
}
