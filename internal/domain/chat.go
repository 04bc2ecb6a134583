package domain

// ChatTurn is one prior exchange in a conversation. The assistant side is
// empty for the turn currently being answered.
type ChatTurn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant,omitempty"`
}

// FileAttachment carries an inline upload attached to a chat turn.
type FileAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	DataBase64  string `json:"data_base64"`
}

// UserSelectionModel holds named placeholder substitutions the client picked
// in the UI; they are interpolated into prompt templates by name.
type UserSelectionModel struct {
	Options map[string]string `json:"options"`
}

// RequestOverrides are optional per-request knobs that take precedence over
// profile defaults.
type RequestOverrides struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// ChatRequest is one user turn as received from the client.
//
// ChatID is stable across a conversation, MessageID is unique per turn, and
// History never contains the current turn's answer. OptionFlags select the
// profile and feature toggles ("profile" is the profile name or id).
type ChatRequest struct {
	ChatID            string              `json:"chat_id"`
	MessageID         string              `json:"message_id"`
	History           []ChatTurn          `json:"history"`
	SelectedDocuments []string            `json:"selected_documents,omitempty"`
	FileAttachments   []FileAttachment    `json:"file_attachments,omitempty"`
	OptionFlags       map[string]string   `json:"option_flags,omitempty"`
	UserSelection     *UserSelectionModel `json:"user_selection,omitempty"`
	ThreadID          string              `json:"thread_id,omitempty"`
	Overrides         *RequestOverrides   `json:"overrides,omitempty"`
}

// Question returns the user text of the turn being answered: the last history
// entry's user side.
func (r ChatRequest) Question() string {
	if len(r.History) == 0 {
		return ""
	}
	return r.History[len(r.History)-1].User
}

// ProfileFlag returns the profile selector from the option flags.
func (r ChatRequest) ProfileFlag() string {
	if r.OptionFlags == nil {
		return ""
	}
	return r.OptionFlags["profile"]
}

// SupportingContentRecord is one citation surfaced to the user.
type SupportingContentRecord struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	SourceType string `json:"source_type"`
	ID         string `json:"id"`
}

// ThoughtRecord is one diagnostic step recorded while producing an answer.
type ThoughtRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ElapsedMs   int64  `json:"elapsed_ms,omitempty"`
}

// ResponseContext carries the structured metadata of a completed turn.
type ResponseContext struct {
	Profile    string                    `json:"profile"`
	DataPoints []SupportingContentRecord `json:"data_points,omitempty"`
	Thoughts   []ThoughtRecord           `json:"thoughts,omitempty"`
	MessageID  string                    `json:"message_id"`
	ChatID     string                    `json:"chat_id"`
	ThreadID   string                    `json:"thread_id,omitempty"`
}

// ApproachResponse is the final structured result of one turn.
type ApproachResponse struct {
	Answer          string          `json:"answer"`
	CitationBaseURL string          `json:"citation_base_url,omitempty"`
	Context         ResponseContext `json:"context"`
	Error           string          `json:"error,omitempty"`
}

// ChatChunkResponse is one unit of streamed output. FinalResult is non-nil
// on exactly one chunk per stream, always the last one.
type ChatChunkResponse struct {
	Text        string            `json:"text"`
	FinalResult *ApproachResponse `json:"final_result,omitempty"`
}

// KnowledgeSource is one retrieved passage plus its citation locator.
type KnowledgeSource struct {
	Locator string `json:"locator"`
	Content string `json:"content"`
}

// UserContext identifies the caller of a chat request.
type UserContext struct {
	ID     string
	Name   string
	Groups []string
}
