package chat

import (
	"time"

	"github.com/atelierhq/atelier/backend/internal/tools"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation, with any tool invocations the
// assistant made while producing it.
type Message struct {
	ID        string       `json:"id"`
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	ToolCalls []tools.Call `json:"toolCalls,omitempty"`
}
