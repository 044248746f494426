package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDispatcher(opts ...Option) *Dispatcher {
	opts = append([]Option{WithDelay(0)}, opts...)
	return NewDispatcher(DefaultBackends(), nil, opts...)
}

func TestInitializeAlwaysReachesReady(t *testing.T) {
	d := newTestDispatcher()
	require.Equal(t, StateUninitialized, d.CurrentState())

	require.NoError(t, d.Initialize(context.Background()))
	require.Equal(t, StateReady, d.CurrentState())

	// Idempotent.
	require.NoError(t, d.Initialize(context.Background()))

	names, err := d.ToolNames(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{ToolImageGenerate, ToolImageEditText}, names)
}

func TestExecuteUnknownTool(t *testing.T) {
	d := newTestDispatcher()
	_, err := d.Execute(context.Background(), "get_weather", nil)
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestSimulatedImageGenerate(t *testing.T) {
	d := newTestDispatcher()
	prompt := "jazz night poster"

	// Color is randomized, so two runs need not match, but the shape and
	// the prompt reference must always hold.
	for i := 0; i < 2; i++ {
		result, err := d.Execute(context.Background(), ToolImageGenerate, map[string]any{"prompt": prompt})
		require.NoError(t, err)
		require.Equal(t, KindImage, result.Kind)
		require.NotNil(t, result.Image)
		require.True(t, strings.HasPrefix(result.Image.GeneratedImageURL, "https://placehold.co/800x600/"))
		require.Contains(t, result.Image.GeneratedImageURL, "jazz")
		require.Contains(t, result.Image.Message, prompt)
	}
}

func TestSimulatedImageEdit(t *testing.T) {
	d := newTestDispatcher()
	result, err := d.Execute(context.Background(), ToolImageEditText, map[string]any{"new_text": "June 2nd"})
	require.NoError(t, err)
	require.Equal(t, KindImage, result.Kind)
	require.Contains(t, result.Image.Message, "June 2nd")
}

func TestSimulatedFaultInjection(t *testing.T) {
	d := newTestDispatcher(WithFailure(ToolImageGenerate))
	_, err := d.Execute(context.Background(), ToolImageGenerate, map[string]any{"prompt": "x"})
	require.ErrorIs(t, err, ErrToolExecutionFailed)

	// Other tools are unaffected.
	_, err = d.Execute(context.Background(), ToolImageEditText, map[string]any{"new_text": "y"})
	require.NoError(t, err)
}

func TestLiveBackendRegistrationAndCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tools":
			_ = json.NewEncoder(w).Encode(map[string]any{"tools": []string{ToolImageGenerate}})
		case "/tools/call":
			var payload struct {
				Name      string         `json:"name"`
				Arguments map[string]any `json:"arguments"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.Equal(t, ToolImageGenerate, payload.Name)
			_ = json.NewEncoder(w).Encode(Result{
				Kind:  KindImage,
				Image: &ImageResult{GeneratedImageURL: "https://img.example/1.png", Message: "done"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	backends := []BackendConfig{
		{Name: BackendImageGenerate, Endpoint: server.URL},
		{Name: BackendImageEdit},
	}
	d := NewDispatcher(backends, nil, WithDelay(0))

	result, err := d.Execute(context.Background(), ToolImageGenerate, map[string]any{"prompt": "p"})
	require.NoError(t, err)
	require.Equal(t, KindImage, result.Kind)
	require.Equal(t, "https://img.example/1.png", result.Image.GeneratedImageURL)

	// The edit backend had no endpoint and stays on the simulated path.
	result, err = d.Execute(context.Background(), ToolImageEditText, map[string]any{"new_text": "t"})
	require.NoError(t, err)
	require.Equal(t, KindImage, result.Kind)
}

func TestLiveBackendFailureWrapsError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tools":
			_ = json.NewEncoder(w).Encode(map[string]any{"tools": []string{ToolImageGenerate}})
		case "/tools/call":
			calls++
			http.Error(w, "backend exploded", http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	d := NewDispatcher([]BackendConfig{{Name: BackendImageGenerate, Endpoint: server.URL}}, nil, WithDelay(0))

	_, err := d.Execute(context.Background(), ToolImageGenerate, map[string]any{"prompt": "p"})
	require.ErrorIs(t, err, ErrToolExecutionFailed)
	// No automatic retry: exactly one backend call.
	require.Equal(t, 1, calls)
}

func TestUnreachableBackendFallsBackToStaticMap(t *testing.T) {
	// Endpoint refuses connections; registration fails but the tool still
	// resolves via the static mapping and executes simulated.
	d := NewDispatcher([]BackendConfig{
		{Name: BackendImageGenerate, Endpoint: "http://127.0.0.1:1"},
	}, nil, WithDelay(0))

	result, err := d.Execute(context.Background(), ToolImageGenerate, map[string]any{"prompt": "p"})
	require.NoError(t, err)
	require.Equal(t, KindImage, result.Kind)
}

func TestGenericToolAcknowledgement(t *testing.T) {
	require.Equal(t, KindMessage, simulate("cleanup_layers", nil).Kind)
	require.Contains(t, simulate("cleanup_layers", nil).Message, "cleanup_layers")
}

func TestPlaceholderURLTruncatesEncodedPrompt(t *testing.T) {
	long := strings.Repeat("jazz ", 40)
	url := placeholderImageURL(long)
	require.LessOrEqual(t, len(url), len("https://placehold.co/800x600/ffffff/FFFFFF/png?text=")+50)
	require.NotContains(t, url[len(url)-2:], "%")
}
