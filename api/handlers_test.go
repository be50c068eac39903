package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlia-ai/owlia/internal/knowledge"
	"github.com/owlia-ai/owlia/internal/log"
	"github.com/owlia-ai/owlia/internal/rag"
	"github.com/owlia-ai/owlia/internal/session"
	"github.com/owlia-ai/owlia/internal/testutil"
	"github.com/owlia-ai/owlia/internal/tutor"
)

type apiFixture struct {
	handler  http.Handler
	mock     *testutil.MockLLM
	sessions *session.Store
}

// setupAPI builds the full API surface against a real pgvector container
// with mock model and embedder.
func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	tdb := testutil.SetupTestDB(t)
	g := testutil.NewGenkit(t)

	mockEmbedder := testutil.NewMockEmbedder(testutil.EmbeddingDim)
	embedder := mockEmbedder.Register(g)
	mockLLM := testutil.NewMockLLM("default answer")
	mockLLM.Register(g)

	know := knowledge.New(tdb.Pool, embedder, testutil.DiscardLogger())
	sessions := session.New(tdb.Pool, testutil.DiscardLogger())

	tut, err := tutor.New(tutor.Config{
		Genkit:    g,
		Knowledge: know,
		Sessions:  sessions,
		Logger:    testutil.DiscardLogger(),
		ModelName: testutil.MockModelName,
	})
	require.NoError(t, err)

	indexer := rag.NewIndexer(know, rag.IndexerConfig{Logger: testutil.DiscardLogger()})

	srv, err := NewServer(ServerConfig{
		Logger:       log.NewNop(),
		Tutor:        tut,
		Indexer:      indexer,
		SessionStore: sessions,
		DBPool:       tdb.Pool,
		Info: Info{
			Version:   "test",
			Provider:  "mock",
			ModelName: testutil.MockModelName,
		},
	})
	require.NoError(t, err)

	return &apiFixture{handler: srv.Handler(), mock: mockLLM, sessions: sessions}
}

func (f *apiFixture) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestAPI_RootAndHealth(t *testing.T) {
	f := setupAPI(t)

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	root := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "owlia", root["name"])

	w = httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	health := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "mock", health["provider"])

	w = httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_Query(t *testing.T) {
	f := setupAPI(t)
	f.mock.AddResponse("gravity", "Great question! Gravity pulls masses together.")

	w := f.postJSON(t, "/query", QueryRequest{Question: "what is gravity"})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON[AnswerResponse](t, w)
	assert.Contains(t, resp.Text, "Gravity pulls")
	assert.Equal(t, "happy", string(resp.Emotion))
	assert.Empty(t, resp.SessionID, "single-turn answers carry no session")
}

func TestAPI_Query_Validation(t *testing.T) {
	f := setupAPI(t)

	w := f.postJSON(t, "/query", QueryRequest{Question: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Chat_NewSession(t *testing.T) {
	f := setupAPI(t)
	f.mock.AddResponse("photosynthesis", "Plants convert sunlight into energy.")

	w := f.postJSON(t, "/chat", ChatRequest{Question: "what is photosynthesis"})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON[AnswerResponse](t, w)
	assert.Contains(t, resp.Text, "convert sunlight")
	require.NotEmpty(t, resp.SessionID)

	// The session exists and holds the exchange.
	id, err := uuid.Parse(resp.SessionID)
	require.NoError(t, err)
	msgs, err := f.sessions.Messages(t.Context(), id, 10, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestAPI_Chat_ExistingSession(t *testing.T) {
	f := setupAPI(t)
	f.mock.AddResponse("first", "answer one")
	f.mock.AddResponse("again", "answer two")

	w := f.postJSON(t, "/chat", ChatRequest{Question: "first question"})
	require.Equal(t, http.StatusOK, w.Code)
	sessionID := decodeJSON[AnswerResponse](t, w).SessionID

	w = f.postJSON(t, "/chat", ChatRequest{Question: "again please", SessionID: sessionID})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON[AnswerResponse](t, w)
	assert.Equal(t, sessionID, resp.SessionID)
	assert.Contains(t, resp.Text, "answer two")
}

func TestAPI_Chat_Errors(t *testing.T) {
	f := setupAPI(t)

	w := f.postJSON(t, "/chat", ChatRequest{Question: "hello", SessionID: uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.postJSON(t, "/chat", ChatRequest{Question: "hello", SessionID: "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.postJSON(t, "/chat", ChatRequest{Question: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A blank question must not create an orphan session.
	resp := f.listSessions(t)
	assert.Zero(t, resp["total"])
}

func (f *apiFixture) listSessions(t *testing.T) map[string]any {
	t.Helper()
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON[map[string]any](t, w)
	// JSON numbers decode as float64; normalize for callers.
	resp["total"] = int(resp["total"].(float64))
	return resp
}

func TestAPI_SessionLifecycle(t *testing.T) {
	f := setupAPI(t)

	w := f.postJSON(t, "/api/sessions", CreateSessionRequest{Title: "Algebra help"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeJSON[session.Session](t, w)
	assert.Equal(t, "Algebra help", created.Title)

	resp := f.listSessions(t)
	assert.Equal(t, 1, resp["total"])

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+created.ID.String(), nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	resp = f.listSessions(t)
	assert.Zero(t, resp["total"])

	// Deleting again reports not found.
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+created.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Session_Validation(t *testing.T) {
	f := setupAPI(t)

	w := f.postJSON(t, "/api/sessions", CreateSessionRequest{Title: strings.Repeat("x", 200)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/garbage", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAPI_Ingest(t *testing.T) {
	f := setupAPI(t)

	var sb strings.Builder
	for i := range 300 {
		fmt.Fprintf(&sb, "word%d ", i)
	}
	body, contentType := multipartUpload(t, "file", "notes.txt", sb.String())

	req := httptest.NewRequest(http.MethodPost, "/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeJSON[IngestResponse](t, w)
	assert.Equal(t, "notes.txt", resp.Doc)
	assert.Greater(t, resp.ChunksSaved, 1)
}

func TestAPI_Ingest_Validation(t *testing.T) {
	f := setupAPI(t)

	tests := []struct {
		name     string
		field    string
		filename string
		content  string
		want     int
	}{
		{name: "unsupported extension", field: "file", filename: "slides.pdf", content: "text", want: http.StatusBadRequest},
		{name: "empty document", field: "file", filename: "empty.txt", content: "   ", want: http.StatusBadRequest},
		{name: "wrong field name", field: "upload", filename: "notes.txt", content: "text", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartUpload(t, tt.field, tt.filename, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/ingest", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
