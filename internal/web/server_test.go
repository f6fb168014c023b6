package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apruvost/memodeck/internal/blockstore"
	"github.com/apruvost/memodeck/internal/engine"
	"github.com/apruvost/memodeck/internal/session"
	"github.com/apruvost/memodeck/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	blocks := blockstore.New(filepath.Join(dir, "blocks"))
	store := storage.New(engine.New(filepath.Join(dir, "scratch")), blocks)
	t.Cleanup(func() { _ = store.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(store, session.New(blocks, store, log), log)
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state map[string]any
	decode(t, rec, &state)
	require.Equal(t, false, state["active"])

	rec = do(t, srv, http.MethodPost, "/api/session", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	decode(t, rec, &created)
	require.True(t, session.IsValidSessionKey(created["sessionKey"]))

	rec = do(t, srv, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &state)
	require.Equal(t, true, state["active"])
	require.Equal(t, created["sessionKey"], state["sessionKey"])

	rec = do(t, srv, http.MethodGet, "/api/user", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user map[string]any
	decode(t, rec, &user)
	require.Equal(t, "Utilisateur", user["name"])

	rec = do(t, srv, http.MethodDelete, "/api/session", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestsWithoutSessionConflict(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/decks", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/user", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeckEndpoints(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/session", nil).Code)

	rec := do(t, srv, http.MethodPost, "/api/decks", map[string]any{"title": "HTTP"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var deck map[string]any
	decode(t, rec, &deck)
	id, _ := deck["id"].(string)
	require.NotEmpty(t, id)

	rec = do(t, srv, http.MethodGet, "/api/decks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var decks []map[string]any
	decode(t, rec, &decks)
	require.Len(t, decks, 1)

	rec = do(t, srv, http.MethodPatch, "/api/decks/"+id, map[string]any{"title": "HTTP/2"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &deck)
	require.Equal(t, "HTTP/2", deck["title"])

	require.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/decks/"+id, nil).Code)
	require.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/decks/"+id, nil).Code)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/session", nil).Code)

	rec := do(t, srv, http.MethodPost, "/api/decks", map[string]any{"title": "x", "nope": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/session", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	decode(t, rec, &created)
	key := created["sessionKey"]

	require.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/session", nil).Code)

	rec = do(t, srv, http.MethodPost, "/api/session/login", map[string]string{"sessionKey": "bad"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/session/login", map[string]string{"sessionKey": "ZZZZZZZZ99"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/session/login", map[string]string{"sessionKey": key})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStatsEndpoints(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/session", nil).Code)

	rec := do(t, srv, http.MethodPatch, "/api/session/stats", map[string]any{"correctAnswers": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	decode(t, rec, &stats)
	require.Equal(t, float64(100), stats["averageScore"])

	rec = do(t, srv, http.MethodPatch, "/api/session/stats", map[string]any{"incorrectAnswers": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stats)
	require.Equal(t, float64(50), stats["averageScore"])

	rec = do(t, srv, http.MethodGet, "/api/session/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionExportImport(t *testing.T) {
	src := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, src, http.MethodPost, "/api/session", nil).Code)
	require.Equal(t, http.StatusCreated,
		do(t, src, http.MethodPost, "/api/decks", map[string]any{"title": "Exporte"}).Code)

	rec := do(t, src, http.MethodGet, "/api/session/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	archiveBytes := rec.Body.Bytes()
	require.NotEmpty(t, archiveBytes)

	dst := newTestServer(t)
	rec = do(t, dst, http.MethodPost, "/api/session/import", archiveBytes)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, dst, http.MethodGet, "/api/decks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var decks []map[string]any
	decode(t, rec, &decks)
	require.Len(t, decks, 1)
	require.Equal(t, "Exporte", decks[0]["title"])
}

func TestImportRejectsGarbage(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/session/import", []byte("junk"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
