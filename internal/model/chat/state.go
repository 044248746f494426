package chat

// State is the settled, authoritative view of one session's conversation.
// Streamed text is a transient overlay; clients reconcile against this.
type State struct {
	SessionID    string    `json:"sessionId"`
	Messages     []Message `json:"messages"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	IsProcessing bool      `json:"isProcessing"`
}
