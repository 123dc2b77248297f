package agent_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"newsgrader/agent"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *agent.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := agent.NewClient(agent.Settings{APIKey: "tvly-test", BaseURL: ts.URL}, nil)
	require.NoError(t, err)
	return client
}

func TestClientResearchStreamingBranch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/research", r.URL.Path)
		require.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))

		var req agent.ResearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.Stream)
		require.NotEmpty(t, req.OutputSchema)

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: [DONE]\n")
	})

	resp, err := client.Research(context.Background(), agent.ResearchRequest{
		Input:        "audit something",
		Model:        "mini",
		OutputSchema: json.RawMessage(`{"properties":{}}`),
		Stream:       true,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Stream)
	defer resp.Stream.Close()

	body, err := io.ReadAll(resp.Stream)
	require.NoError(t, err)
	require.Equal(t, "data: [DONE]\n", string(body))
}

func TestClientResearchStatusBranch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"pending","request_id":"req-42"}`)
	})

	resp, err := client.Research(context.Background(), agent.ResearchRequest{Input: "x", Model: "pro"})
	require.NoError(t, err)
	require.Nil(t, resp.Stream)
	require.Equal(t, "pending", resp.Status.Status)
	require.Equal(t, "req-42", resp.Status.RequestID)
	require.False(t, resp.Status.Terminal())
}

func TestClientStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/research/req-42", r.URL.Path)
		require.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"completed","content":{"letter_grade":"A"}}`)
	})

	status, err := client.Status(context.Background(), "req-42")
	require.NoError(t, err)
	require.True(t, status.Terminal())
	require.Equal(t, "req-42", status.RequestID)
	require.JSONEq(t, `{"letter_grade":"A"}`, string(status.Content))
}

func TestClientTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.Research(context.Background(), agent.ResearchRequest{Input: "x"})

	var transport *agent.TransportError
	require.ErrorAs(t, err, &transport)
	require.Equal(t, http.StatusTooManyRequests, transport.Status)
	require.Contains(t, transport.Body, "rate limited")
	require.False(t, transport.Temporary())
}

func TestClientServerErrorIsTemporary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.Status(context.Background(), "req-1")

	var transport *agent.TransportError
	require.ErrorAs(t, err, &transport)
	require.True(t, transport.Temporary())
}

func TestClientStreamOutlivesClientTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "event: chat.completion.chunk\n")
		flusher.Flush()
		for i := 0; i < 6; i++ {
			time.Sleep(40 * time.Millisecond)
			io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"tok\"}}]}\n")
			flusher.Flush()
		}
		io.WriteString(w, "data: [DONE]\n")
		flusher.Flush()
	}))
	t.Cleanup(ts.Close)

	// The client timeout is far shorter than the stream's lifetime; only the
	// consumption context may bound a streamed body.
	client, err := agent.NewClient(agent.Settings{
		APIKey:  "tvly-test",
		BaseURL: ts.URL,
		Timeout: 50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	resp, err := client.Research(context.Background(), agent.ResearchRequest{Input: "x", Stream: true})
	require.NoError(t, err)
	require.NotNil(t, resp.Stream)
	defer resp.Stream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	consumer := agent.NewStreamConsumer(nil, nil)
	raw, err := consumer.Run(ctx, resp.Stream)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("tok", 6), raw.Text)
}

func TestClientStatusBoundedByTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		io.WriteString(w, `{"status":"pending"}`)
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(release) })

	client, err := agent.NewClient(agent.Settings{
		APIKey:  "tvly-test",
		BaseURL: ts.URL,
		Timeout: 50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	_, err = client.Status(context.Background(), "req-1")

	var transport *agent.TransportError
	require.ErrorAs(t, err, &transport)
}

func TestClientRequiresAPIKey(t *testing.T) {
	_, err := agent.NewClient(agent.Settings{}, nil)
	require.Error(t, err)
}
