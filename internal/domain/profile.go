package domain

// Approach is the enumerated backend kind a profile declares.
type Approach string

const (
	ApproachChat                Approach = "chat"
	ApproachRAG                 Approach = "rag"
	ApproachUserDocumentChat    Approach = "user-document-chat"
	ApproachEndpointAssistant   Approach = "endpoint-assistant"
	ApproachEndpointAssistantV2 Approach = "endpoint-assistant-v2"
	ApproachEndpointTask        Approach = "endpoint-task"
	ApproachAzureAIAgent        Approach = "azure-ai-agent"
	ApproachImage               Approach = "image"
)

// SecurityModel controls how profile visibility is decided.
type SecurityModel string

const (
	// SecurityModelNone makes the profile visible to every caller.
	SecurityModelNone SecurityModel = "none"
	// SecurityModelGroup restricts visibility to callers sharing a group.
	SecurityModelGroup SecurityModel = "group"
)

// RAGSettings configures retrieval for RAG-style approaches.
type RAGSettings struct {
	IndexName             string `json:"index_name"`
	DocumentCount         int    `json:"document_count"`
	MaxSourceTokens       int    `json:"max_source_tokens"`
	CitationUseSourcePage bool   `json:"citation_use_source_page"`
	SemanticRanker        bool   `json:"semantic_ranker"`
}

// EndpointSettings names the configuration keys that resolve to the actual
// upstream URL and credential. Profiles carry setting names, never literal
// endpoints, so deployments can repoint profiles without code changes.
type EndpointSettings struct {
	EndpointSettingName string `json:"endpoint_setting_name"`
	APIKeySettingName   string `json:"api_key_setting_name"`
	TokenScopeSetting   string `json:"token_scope_setting,omitempty"`
}

// ProfileDefinition is one named, access-controlled backend configuration.
type ProfileDefinition struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Approach         Approach          `json:"approach"`
	SecurityModel    SecurityModel     `json:"security_model"`
	SecurityGroups   []string          `json:"security_groups,omitempty"`
	AllowFileUpload  bool              `json:"allow_file_upload"`
	AgentID          string            `json:"agent_id,omitempty"`
	RAGSettings      *RAGSettings      `json:"rag_settings,omitempty"`
	EndpointSettings *EndpointSettings `json:"endpoint_settings,omitempty"`
	SampleQuestions  []string          `json:"sample_questions,omitempty"`
	PromptTemplates  map[string]string `json:"prompt_templates,omitempty"`
}

// RequiresRAGSettings reports whether the approach cannot run without
// retrieval configuration.
func (p ProfileDefinition) RequiresRAGSettings() bool {
	return p.Approach == ApproachRAG || p.Approach == ApproachUserDocumentChat
}

// RequiresEndpointSettings reports whether the approach dispatches to a
// configured upstream endpoint.
func (p ProfileDefinition) RequiresEndpointSettings() bool {
	switch p.Approach {
	case ApproachEndpointAssistant, ApproachEndpointAssistantV2, ApproachEndpointTask:
		return true
	}
	return false
}

// VisibleTo reports whether a caller with the given groups may use the
// profile. An empty membership list means public.
func (p ProfileDefinition) VisibleTo(userGroups []string) bool {
	if p.SecurityModel != SecurityModelGroup || len(p.SecurityGroups) == 0 {
		return true
	}
	allowed := make(map[string]struct{}, len(p.SecurityGroups))
	for _, g := range p.SecurityGroups {
		allowed[g] = struct{}{}
	}
	for _, g := range userGroups {
		if _, ok := allowed[g]; ok {
			return true
		}
	}
	return false
}
