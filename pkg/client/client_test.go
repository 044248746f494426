package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/backend/internal/agent"
	"github.com/atelierhq/atelier/backend/internal/controller"
	"github.com/atelierhq/atelier/backend/internal/handler"
	"github.com/atelierhq/atelier/backend/internal/kv"
	"github.com/atelierhq/atelier/backend/internal/model/catalog"
	"github.com/atelierhq/atelier/backend/internal/tools"
)

// newTestServer stands up the whole API surface the way cmd/api does,
// minus Redis and the live model.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctrl := controller.New(controller.DefaultPartition, kv.NewMemoryStore(), nil, "", nil)
	dispatcher := tools.NewDispatcher(tools.DefaultBackends(), nil, tools.WithDelay(0))
	agents := agent.NewRegistry(nil, dispatcher, ctrl, "gemini-2.5-flash", nil)
	models := catalog.NewMemoryStore(catalog.Seed())

	server := httptest.NewServer(handler.NewRouter(ctrl, agents, models, nil))
	t.Cleanup(server.Close)
	return server
}

func TestDecoderKeepsSplitRunesIntact(t *testing.T) {
	var dec streamDecoder

	// "€" is e2 82 ac; cut it across three pushes.
	require.Equal(t, "price: ", dec.push([]byte("price: \xe2")))
	require.Equal(t, "", dec.push([]byte{0x82}))
	require.Equal(t, "€5", dec.push([]byte("\xac5")))
	require.Equal(t, "", dec.flush())
}

func TestDecoderPassesCompleteInputThrough(t *testing.T) {
	var dec streamDecoder
	require.Equal(t, "héllo", dec.push([]byte("héllo")))
	require.Equal(t, "plain ascii", dec.push([]byte("plain ascii")))
}

func TestDecoderFlushDrainsTruncatedTail(t *testing.T) {
	var dec streamDecoder
	require.Equal(t, "ok", dec.push([]byte("ok\xe2\x82")))
	// The stream ended mid-rune; flush hands back the raw tail rather than
	// dropping it.
	require.Equal(t, "\xe2\x82", dec.flush())
}

func TestDecoderDoesNotStallOnInvalidBytes(t *testing.T) {
	var dec streamDecoder
	// 0xff can never start a rune; it must not be carried forever.
	out := dec.push([]byte{'a', 0xff})
	out += dec.push([]byte("b"))
	out += dec.flush()
	require.Equal(t, "a\xffb", out)
}

func TestSendMessageStreamsThenReturnsSettledState(t *testing.T) {
	server := newTestServer(t)
	c := New(server.URL, "sess-stream", nil)

	var chunks []string
	state, err := c.SendMessage(context.Background(), "hello from the client", "", func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)

	require.NotEmpty(t, chunks)
	streamed := strings.Join(chunks, "")
	require.Contains(t, streamed, "hello from the client")

	// The settled state was re-fetched and is authoritative.
	require.Equal(t, "sess-stream", state.SessionID)
	require.False(t, state.IsProcessing)
	require.Len(t, state.Messages, 2)
	require.Equal(t, streamed, state.Messages[1].Content)
}

func TestSendMessageWithoutCallbackSkipsStreaming(t *testing.T) {
	server := newTestServer(t)
	c := New(server.URL, "sess-plain", nil)

	state, err := c.SendMessage(context.Background(), "just reply", "", nil)
	require.NoError(t, err)
	require.Len(t, state.Messages, 2)
	require.Equal(t, "user", state.Messages[0].Role)
	require.Equal(t, "assistant", state.Messages[1].Role)
}

func TestImageRequestSurfacesToolCall(t *testing.T) {
	server := newTestServer(t)
	c := New(server.URL, "sess-image", nil)

	state, err := c.SendMessage(context.Background(), "generate an image of a lighthouse", "", nil)
	require.NoError(t, err)

	assistant := state.Messages[1]
	require.Len(t, assistant.ToolCalls, 1)
	require.Equal(t, "image_generate", assistant.ToolCalls[0].Name)
	require.NotEmpty(t, assistant.ToolCalls[0].Result)
}

func TestSessionLifecycleThroughClient(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()
	c := New(server.URL, "ignored", nil)

	created, err := c.CreateSession(ctx, "", "", "Design a poster for a jazz night in New Orleans, June 2nd at Rue Chartres")
	require.NoError(t, err)
	require.NotEmpty(t, created.SessionID)
	require.Contains(t, created.Title, "...")

	sessions, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sessions)
	require.Equal(t, created.SessionID, sessions[0].ID)

	require.NoError(t, c.RenameSession(ctx, created.SessionID, "Jazz"))
	require.NoError(t, c.DeleteSession(ctx, created.SessionID))

	err = c.DeleteSession(ctx, created.SessionID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "Session not found", apiErr.Message)
}

func TestProjectLifecycleThroughClient(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()
	c := New(server.URL, "sess-p", nil)

	require.NoError(t, c.SaveProject(ctx, "p1", `{"objects":[]}`, "Draft"))

	project, err := c.LoadProject(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Draft", project.Title)
	require.Equal(t, `{"objects":[]}`, project.DocumentState)

	projects, err := c.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	require.NoError(t, c.DeleteProject(ctx, "p1"))
	_, err = c.LoadProject(ctx, "p1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestListModels(t *testing.T) {
	server := newTestServer(t)
	models, err := New(server.URL, "s", nil).ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 3)
}

func TestTransportFailureWrapsUniformly(t *testing.T) {
	c := New("http://127.0.0.1:1", "s", nil)
	_, err := c.Messages(context.Background())
	require.ErrorIs(t, err, ErrRequestFailed)

	_, err = c.SendMessage(context.Background(), "hi", "", nil)
	require.ErrorIs(t, err, ErrRequestFailed)
}
