package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Backend is a live tool executor reachable over the network.
type Backend interface {
	// ListTools reports the tool names this backend serves.
	ListTools(ctx context.Context) ([]string, error)
	// CallTool executes one tool and returns its typed result.
	CallTool(ctx context.Context, name string, args map[string]any) (Result, error)
}

// HTTPBackend talks to a tool server exposing
// GET {endpoint}/tools and POST {endpoint}/tools/call.
type HTTPBackend struct {
	endpoint string
	client   *http.Client
}

// NewHTTPBackend wires a backend at the given base endpoint. A nil client
// falls back to http.DefaultClient.
func NewHTTPBackend(endpoint string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBackend{endpoint: endpoint, client: client}
}

func (b *HTTPBackend) ListTools(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"/tools", nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list tools: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Tools []string `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return payload.Tools, nil
}

func (b *HTTPBackend) CallTool(ctx context.Context, name string, args map[string]any) (Result, error) {
	body, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/tools/call", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("call tool: unexpected status %d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil || result.Kind == "" {
		// Backend spoke its own dialect; keep the payload instead of guessing.
		return RawOf(raw), nil
	}
	return result, nil
}
