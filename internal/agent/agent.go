package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/backend/internal/model/chat"
	"github.com/atelierhq/atelier/backend/internal/tools"
	"github.com/atelierhq/atelier/backend/pkg/utils"
)

const defaultSystemPrompt = "You are a creative assistant for a poster design studio. " +
	"Help the user compose posters and generate imagery for their canvas."

// Agent is the per-session conversational endpoint. The proxy forwards
// prefix-stripped requests here; responses to streaming chat requests are
// raw text fragments flushed as they are produced.
type Agent struct {
	id     string
	llm    *LLM
	tools  *tools.Dispatcher
	logger *zap.Logger
	router chi.Router

	mu           sync.Mutex
	messages     []chat.Message
	model        string
	systemPrompt string
	processing   bool
}

// New builds an agent for one session. llm may be nil; the agent then
// degrades to a deterministic offline generator.
func New(sessionID string, llm *LLM, dispatcher *tools.Dispatcher, defaultModel string, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		id:           sessionID,
		llm:          llm,
		tools:        dispatcher,
		logger:       logger,
		model:        defaultModel,
		systemPrompt: defaultSystemPrompt,
	}

	r := chi.NewRouter()
	r.Post("/chat", a.handleChat)
	r.Get("/messages", a.handleGetMessages)
	r.Delete("/messages", a.handleClearMessages)
	r.Post("/model", a.handleUpdateModel)
	r.Post("/system-prompt", a.handleUpdateSystemPrompt)
	a.router = r

	return a
}

func (a *Agent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// state snapshots the settled conversation under the lock.
func (a *Agent) state() chat.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	messages := make([]chat.Message, len(a.messages))
	copy(messages, a.messages)
	return chat.State{
		SessionID:    a.id,
		Messages:     messages,
		Model:        a.model,
		SystemPrompt: a.systemPrompt,
		IsProcessing: a.processing,
	}
}

func (a *Agent) handleGetMessages(w http.ResponseWriter, _ *http.Request) {
	utils.RespondSuccess(w, http.StatusOK, a.state())
}

func (a *Agent) handleClearMessages(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	a.messages = nil
	a.mu.Unlock()
	utils.RespondSuccess(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (a *Agent) handleUpdateModel(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Model == "" {
		utils.RespondError(w, http.StatusBadRequest, "model is required")
		return
	}
	a.mu.Lock()
	a.model = payload.Model
	a.mu.Unlock()
	utils.RespondSuccess(w, http.StatusOK, a.state())
}

func (a *Agent) handleUpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	a.mu.Lock()
	a.systemPrompt = payload.Prompt
	a.mu.Unlock()
	utils.RespondSuccess(w, http.StatusOK, map[string]bool{"updated": true})
}

func (a *Agent) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
		Model   string `json:"model"`
		Stream  bool   `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	a.mu.Lock()
	if payload.Model != "" {
		a.model = payload.Model
	}
	history := make([]chat.Message, len(a.messages))
	copy(history, a.messages)
	a.messages = append(a.messages, chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Content:   payload.Message,
		Timestamp: time.Now().UTC(),
	})
	a.processing = true
	system := a.systemPrompt
	a.mu.Unlock()

	var emit func(fragment string)
	var flusher http.Flusher
	if payload.Stream {
		if f, ok := w.(http.Flusher); ok {
			flusher = f
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			emit = func(fragment string) { utils.StreamText(w, flusher, fragment) }
		}
	}

	assistant := a.respond(r.Context(), system, history, payload.Message, emit)

	a.mu.Lock()
	a.messages = append(a.messages, assistant)
	a.processing = false
	a.mu.Unlock()

	if emit != nil {
		// Body already carried the text; the settled state is re-fetched
		// by the client via GET /messages.
		return
	}
	utils.RespondSuccess(w, http.StatusOK, a.state())
}

// respond runs tool dispatch and text generation for one turn. Tool
// failures become structured error results on the message, never an HTTP
// failure, since they occur inside an otherwise successful chat turn.
func (a *Agent) respond(ctx context.Context, system string, history []chat.Message, userMessage string, emit func(string)) chat.Message {
	assistant := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleAssistant,
		Timestamp: time.Now().UTC(),
	}

	var toolSummary string
	if name, args, ok := a.detectToolIntent(userMessage); ok {
		call := tools.Call{ID: uuid.NewString(), Name: name, Arguments: args}
		result, err := a.tools.Execute(ctx, name, args)
		if err != nil {
			a.logger.Warn("tool execution failed",
				zap.String("session", a.id),
				zap.String("tool", name),
				zap.Error(err))
			errResult := tools.ErrorOf(err.Error())
			call.Result = &errResult
			toolSummary = "I tried to run " + name + " but it failed. You can ask me to retry."
		} else {
			call.Result = &result
			if result.Kind == tools.KindImage && result.Image != nil {
				toolSummary = result.Image.Message + " The image has been added to your canvas."
			} else if result.Message != "" {
				toolSummary = result.Message
			}
		}
		assistant.ToolCalls = append(assistant.ToolCalls, call)
	}

	text, err := a.generateText(ctx, system, history, userMessage, emit)
	if err != nil {
		a.logger.Error("generation failed", zap.String("session", a.id), zap.Error(err))
		text = "I ran into a problem generating a response. Please try again."
		if emit != nil {
			emit(text)
		}
	}

	if toolSummary != "" {
		if text != "" {
			text += "\n\n"
		}
		text += toolSummary
		if emit != nil {
			emit("\n\n" + toolSummary)
		}
	}

	assistant.Content = text
	return assistant
}

// generateText streams or invokes the model, falling back to the offline
// generator when no model is configured.
func (a *Agent) generateText(ctx context.Context, system string, history []chat.Message, userMessage string, emit func(string)) (string, error) {
	if a.llm == nil {
		text := offlineReply(userMessage)
		if emit != nil {
			for _, word := range strings.SplitAfter(text, " ") {
				emit(word)
			}
		}
		return text, nil
	}

	if emit == nil || !a.llm.StreamingEnabled() {
		response, err := a.llm.Generate(ctx, system, history, userMessage)
		if err != nil {
			return "", err
		}
		if emit != nil {
			emit(response.Content)
		}
		return response.Content, nil
	}

	stream, err := a.llm.Stream(ctx, system, history, userMessage)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		builder.WriteString(chunk.Content)
		emit(chunk.Content)
	}
	return builder.String(), nil
}

// detectToolIntent decides whether the user's message should trigger the
// image pipeline. The live model path would normally drive this through
// model tool-calls; intent keywords keep the offline path useful.
func (a *Agent) detectToolIntent(message string) (string, map[string]any, bool) {
	lower := strings.ToLower(message)
	for _, keyword := range []string{"image", "poster", "picture", "illustration", "logo", "draw"} {
		if strings.Contains(lower, keyword) {
			return tools.ToolImageGenerate, map[string]any{"prompt": message}, true
		}
	}
	return "", nil, false
}

func offlineReply(userMessage string) string {
	return "I'm working on it. Your request was: " + strings.TrimSpace(userMessage)
}
