// Package client is the Go consumer of the atelier backend: typed wrappers
// for every endpoint plus the streaming chat transport.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrRequestFailed is the uniform wrapper for any transport-level failure.
// Callers retry at the user's request, never automatically.
var ErrRequestFailed = errors.New("request failed")

// APIError is a failure envelope returned by the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Client talks to one backend on behalf of one session.
type Client struct {
	baseURL   string
	sessionID string
	http      *http.Client
}

// New builds a client. httpClient may be nil.
func New(baseURL, sessionID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		sessionID: sessionID,
		http:      httpClient,
	}
}

// SessionID returns the session this client is bound to.
func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) chatURL(path string) string {
	return c.baseURL + "/api/chat/" + c.sessionID + path
}

// SendMessage posts one user message. When onChunk is non-nil the response
// body is consumed incrementally and onChunk is invoked once per decoded
// text fragment as it arrives; the decoder tolerates multi-byte characters
// split across read boundaries. In every case the settled conversation
// state is re-fetched afterwards and returned — streamed text is a
// transient overlay, not the system of record.
func (c *Client) SendMessage(ctx context.Context, message, model string, onChunk func(string)) (ChatState, error) {
	payload := map[string]any{
		"message": message,
		"stream":  onChunk != nil,
	}
	if model != "" {
		payload["model"] = model
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return ChatState{}, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL("/chat"), bytes.NewReader(body))
	if err != nil {
		return ChatState{}, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ChatState{}, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return ChatState{}, apiErrorFrom(resp.StatusCode, raw)
	}

	if onChunk != nil {
		if err := c.consumeStream(resp.Body, onChunk); err != nil {
			return ChatState{}, err
		}
	} else {
		// Drain so the connection can be reused; the settled fetch below
		// is authoritative either way.
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	return c.Messages(ctx)
}

// consumeStream reads the body without buffering it whole, handing each
// decoded fragment to the callback.
func (c *Client) consumeStream(body io.Reader, onChunk func(string)) error {
	var dec streamDecoder
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if fragment := dec.push(buf[:n]); fragment != "" {
				onChunk(fragment)
			}
		}
		if errors.Is(err, io.EOF) {
			if tail := dec.flush(); tail != "" {
				onChunk(tail)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
	}
}

// Messages fetches the settled conversation state. Idempotent.
func (c *Client) Messages(ctx context.Context) (ChatState, error) {
	var state ChatState
	if err := c.do(ctx, http.MethodGet, c.chatURL("/messages"), nil, &state); err != nil {
		return ChatState{}, err
	}
	return state, nil
}

// ClearMessages wipes the session transcript.
func (c *Client) ClearMessages(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, c.chatURL("/messages"), nil, nil)
}

// UpdateModel switches the session's completion model.
func (c *Client) UpdateModel(ctx context.Context, model string) (ChatState, error) {
	var state ChatState
	if err := c.do(ctx, http.MethodPost, c.chatURL("/model"), map[string]string{"model": model}, &state); err != nil {
		return ChatState{}, err
	}
	return state, nil
}

// UpdateSystemPrompt replaces the session's system prompt.
func (c *Client) UpdateSystemPrompt(ctx context.Context, prompt string) error {
	return c.do(ctx, http.MethodPost, c.chatURL("/system-prompt"), map[string]string{"prompt": prompt}, nil)
}

// CreateSession registers a session. Empty arguments let the server pick
// an id and derive a title.
func (c *Client) CreateSession(ctx context.Context, title, sessionID, firstMessage string) (CreatedSession, error) {
	payload := map[string]string{}
	if title != "" {
		payload["title"] = title
	}
	if sessionID != "" {
		payload["sessionId"] = sessionID
	}
	if firstMessage != "" {
		payload["firstMessage"] = firstMessage
	}
	var created CreatedSession
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/sessions", payload, &created); err != nil {
		return CreatedSession{}, err
	}
	return created, nil
}

// ListSessions returns all sessions, most recently active first.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	var sessions []SessionInfo
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/api/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes one session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, c.baseURL+"/api/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// RenameSession updates a session title.
func (c *Client) RenameSession(ctx context.Context, sessionID, title string) error {
	return c.do(ctx, http.MethodPut, c.baseURL+"/api/sessions/"+url.PathEscape(sessionID)+"/title",
		map[string]string{"title": title}, nil)
}

// ClearSessions removes every session and reports how many were deleted.
func (c *Client) ClearSessions(ctx context.Context) (int, error) {
	var data struct {
		DeletedCount int `json:"deletedCount"`
	}
	if err := c.do(ctx, http.MethodDelete, c.baseURL+"/api/sessions", nil, &data); err != nil {
		return 0, err
	}
	return data.DeletedCount, nil
}

// SaveProject persists a canvas document under this client's session.
func (c *Client) SaveProject(ctx context.Context, projectID, documentState, title string) error {
	payload := map[string]string{"projectId": projectID, "documentState": documentState}
	if title != "" {
		payload["title"] = title
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/api/projects/"+url.PathEscape(c.sessionID), payload, nil)
}

// LoadProject fetches one saved canvas document.
func (c *Client) LoadProject(ctx context.Context, projectID string) (Project, error) {
	var project Project
	err := c.do(ctx, http.MethodGet,
		c.baseURL+"/api/projects/"+url.PathEscape(c.sessionID)+"/"+url.PathEscape(projectID), nil, &project)
	if err != nil {
		return Project{}, err
	}
	return project, nil
}

// ListProjects returns this session's projects, most recently modified
// first.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/api/projects/"+url.PathEscape(c.sessionID), nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// DeleteProject removes one saved canvas document.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodDelete,
		c.baseURL+"/api/projects/"+url.PathEscape(c.sessionID)+"/"+url.PathEscape(projectID), nil, nil)
}

// ListModels returns the model catalog.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var models []Model
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/api/models", nil, &models); err != nil {
		return nil, err
	}
	return models, nil
}

// do performs one JSON round trip through the response envelope.
func (c *Client) do(ctx context.Context, method, rawURL string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return apiErrorFrom(resp.StatusCode, raw)
	}
	if !envelope.Success {
		return &APIError{Status: resp.StatusCode, Message: envelope.Error}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
	}
	return nil
}

func apiErrorFrom(status int, raw []byte) error {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return &APIError{Status: status, Message: envelope.Error}
	}
	return &APIError{Status: status, Message: http.StatusText(status)}
}
