package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okampo/ragline/internal/chat"
	"github.com/okampo/ragline/internal/engine"
	"github.com/okampo/ragline/internal/log"
)

func newTestServer(t *testing.T, runner Runner) http.Handler {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Logger: log.NewNop(),
		Runner: runner,
	})
	require.NoError(t, err)
	return srv.Handler()
}

func TestNewServer_RequiresRunner(t *testing.T) {
	t.Parallel()

	_, err := NewServer(ServerConfig{Logger: log.NewNop()})
	require.Error(t, err)
}

func TestServer_HealthEndpoints(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &fakeRunner{})

	t.Run("health", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("ready without pool degrades to liveness", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
	})

	t.Run("health skips rate limiting", func(t *testing.T) {
		t.Parallel()
		for range 200 {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}

func TestServer_ChatRoute(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{stream: newFakeStream(
		[]engine.ProgressEvent{
			{Type: engine.EventText, Status: engine.StatusLoading, Message: "hi"},
		},
		&engine.Result{Response: "hi"},
		nil,
	)}
	h := newTestServer(t, runner)

	body, err := json.Marshal(chatRequest{Messages: []chat.Message{chat.User("hello")}})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	r.RemoteAddr = "3.3.3.3:1000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `0:"hi"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestServer_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, &fakeRunner{})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	r.RemoteAddr = "4.4.4.4:1000"
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
