package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/owlia-ai/owlia/internal/log"
	"github.com/owlia-ai/owlia/internal/rag"
	"github.com/owlia-ai/owlia/internal/session"
	"github.com/owlia-ai/owlia/internal/tutor"
)

// stubServer builds a Server with placeholder dependencies. Good enough for
// routing and middleware tests; handlers that touch dependencies are
// exercised in handlers_test.go against real stores.
func stubServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Logger:       log.NewNop(),
		Tutor:        &tutor.Service{},
		Indexer:      &rag.Indexer{},
		SessionStore: &session.Store{},
		Info:         Info{Version: "test"},
	})
	require.NoError(t, err)
	return srv
}

func TestNewServer_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{name: "missing logger", mutate: func(c *ServerConfig) { c.Logger = nil }, wantErr: "logger"},
		{name: "missing tutor", mutate: func(c *ServerConfig) { c.Tutor = nil }, wantErr: "tutor"},
		{name: "missing indexer", mutate: func(c *ServerConfig) { c.Indexer = nil }, wantErr: "indexer"},
		{name: "missing sessions", mutate: func(c *ServerConfig) { c.SessionStore = nil }, wantErr: "session store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ServerConfig{
				Logger:       log.NewNop(),
				Tutor:        &tutor.Service{},
				Indexer:      &rag.Indexer{},
				SessionStore: &session.Store{},
			}
			tt.mutate(&cfg)

			_, err := NewServer(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	handler := stubServer(t).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	handler := stubServer(t).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/query", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_ReadyWithoutPool(t *testing.T) {
	handler := stubServer(t).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_SpeechUnavailable(t *testing.T) {
	handler := stubServer(t).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/speak", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_GracefulShutdown(t *testing.T) {
	srv := stubServer(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()

	httpSrv := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(listener)
	}()

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, httpSrv.Shutdown(shutdownCtx))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop in time")
	}

	// Idle keep-alive connections from the test client would read as leaks.
	http.DefaultClient.CloseIdleConnections()
}
