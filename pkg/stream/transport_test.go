package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocketDialer_ScriptSession(t *testing.T) {
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ws/execute/3/9", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(map[string]any{"type": "output", "data": "building\n"})
		_ = conn.WriteJSON(map[string]any{"type": "error_output", "data": "warning\n"})
		_ = conn.WriteJSON(map[string]any{"type": "finished", "status": "completed", "execution_id": 5})

		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	m, err := NewManager(Config{
		Endpoint: func(path string) string { return "ws" + strings.TrimPrefix(srv.URL, "http") + path },
		Header:   http.Header{"Authorization": []string{"Bearer secret"}},
	})
	require.NoError(t, err)

	s, err := m.Open(t.Context(), ScriptKey(3, 9))
	require.NoError(t, err)

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}

	assert.Equal(t, StateFinished, s.State())
	assert.Equal(t, []string{"building\n", "warning\n"}, s.Lines())
	assert.Equal(t, int64(5), s.ExecutionID())
}

func TestWebsocketDialer_TerminalRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan Frame, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		_ = conn.WriteJSON(map[string]any{"type": "connected", "message": "Connected to web-1"})

		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}

			received <- f

			if f.Type == FrameInput {
				_ = conn.WriteJSON(map[string]any{"type": "output", "data": "echo: " + f.Data})
			}
		}
	}))
	t.Cleanup(srv.Close)

	m, err := NewManager(Config{
		Endpoint: func(path string) string { return "ws" + strings.TrimPrefix(srv.URL, "http") + path },
	})
	require.NoError(t, err)

	s, err := m.Open(t.Context(), TerminalKey(1))
	require.NoError(t, err)
	waitState(t, s, StateStreaming)

	require.NoError(t, s.SendInput("hostname"))
	require.NoError(t, s.CtrlC())

	assert.Equal(t, Frame{Type: FrameInput, Data: "hostname"}, <-received)
	assert.Equal(t, Frame{Type: FrameCtrlC}, <-received)

	require.Eventually(t, func() bool { return len(s.Lines()) == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, "echo: hostname", s.Lines()[0])
	assert.Equal(t, "Connected to web-1", s.Status())

	assert.True(t, s.Stop())
	assert.Equal(t, []string{"echo: hostname"}, s.Lines())
}

func TestWebsocketDialer_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	m, err := NewManager(Config{
		Endpoint: func(path string) string { return "ws" + strings.TrimPrefix(srv.URL, "http") + path },
	})
	require.NoError(t, err)

	s, err := m.Open(t.Context(), TerminalKey(1))
	require.NoError(t, err)

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not fail")
	}

	assert.Equal(t, StateError, s.State())
	require.Len(t, s.Lines(), 1)
	assert.True(t, strings.HasPrefix(s.Lines()[0], "Connection failed: "))
}
