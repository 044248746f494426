package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/atelierhq/atelier/backend/internal/config"
	"github.com/atelierhq/atelier/backend/internal/model/chat"
)

// LLM wraps the completion chain used when Ark credentials are configured.
type LLM struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewLLM compiles the prompt+model chain.
func NewLLM(ctx context.Context, cfg config.AIConfig) (*LLM, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &LLM{chatModel: chatModel, cfg: cfg, chain: runnable}, nil
}

// StreamingEnabled indicates whether chunked output is configured.
func (l *LLM) StreamingEnabled() bool {
	return l.cfg.StreamResponse
}

// Generate produces one complete assistant reply.
func (l *LLM) Generate(ctx context.Context, system string, history []chat.Message, query string) (*schema.Message, error) {
	response, err := l.chain.Invoke(ctx, l.chainInput(system, history, query))
	if err != nil {
		return nil, fmt.Errorf("failed to run chat chain: %w", err)
	}
	return response, nil
}

// Stream produces the assistant reply as a chunk stream.
func (l *LLM) Stream(ctx context.Context, system string, history []chat.Message, query string) (*schema.StreamReader[*schema.Message], error) {
	stream, err := l.chain.Stream(ctx, l.chainInput(system, history, query))
	if err != nil {
		return nil, fmt.Errorf("failed to stream chat chain output: %w", err)
	}
	return stream, nil
}

func (l *LLM) chainInput(system string, history []chat.Message, query string) map[string]any {
	return map[string]any{
		"system":  system,
		"history": historyMessages(history),
		"query":   query,
	}
}

// historyMessages converts stored turns to schema messages, skipping the
// in-flight user turn which is injected via the query slot.
func historyMessages(messages []chat.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		case chat.RoleUser:
			out = append(out, schema.UserMessage(msg.Content))
		}
	}
	return out
}
