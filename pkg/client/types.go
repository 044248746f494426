package client

import (
	"encoding/json"
	"time"
)

// SessionInfo mirrors the server's session record.
type SessionInfo struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

// CreatedSession is the response to session creation.
type CreatedSession struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
}

// Project mirrors the server's canvas project record.
type Project struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	DocumentState string    `json:"documentState"`
	LastModified  time.Time `json:"lastModified"`
}

// ToolCall is one tool invocation attached to an assistant message. The
// result is kept raw; callers inspect the kind tag before decoding.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments map[string]any  `json:"arguments"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// Message is one settled conversation turn.
type Message struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
}

// ChatState is the authoritative conversation state. Streamed text is only
// a display overlay until this has been re-fetched.
type ChatState struct {
	SessionID    string    `json:"sessionId"`
	Messages     []Message `json:"messages"`
	Model        string    `json:"model"`
	IsProcessing bool      `json:"isProcessing"`
}

// Model is one entry of the model catalog.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
