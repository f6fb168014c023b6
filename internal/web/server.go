// Package web exposes the storage and session surface as a JSON HTTP API.
// The UI layer is a plain consumer of these endpoints; no state lives here.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/apruvost/memodeck/internal/archive"
	"github.com/apruvost/memodeck/internal/blockstore"
	"github.com/apruvost/memodeck/internal/domain"
	"github.com/apruvost/memodeck/internal/engine"
	"github.com/apruvost/memodeck/internal/session"
	"github.com/apruvost/memodeck/internal/storage"
)

// maxBodyBytes caps request bodies. Archives carry whole databases with
// inline media, so the cap is generous.
const maxBodyBytes = 256 << 20

// Server holds the dependencies for the HTTP API.
type Server struct {
	store    *storage.Store
	sessions *session.Directory
	router   *http.ServeMux
	log      *slog.Logger
}

// NewServer creates and configures a new server.
func NewServer(store *storage.Store, sessions *session.Directory, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		store:    store,
		sessions: sessions,
		router:   http.NewServeMux(),
		log:      log,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /api/user", s.handleGetUser)
	s.router.HandleFunc("PATCH /api/user", s.handleUpdateUser)
	s.router.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.router.HandleFunc("PATCH /api/settings", s.handleUpdateSettings)

	s.router.HandleFunc("GET /api/decks", s.handleListDecks)
	s.router.HandleFunc("POST /api/decks", s.handleCreateDeck)
	s.router.HandleFunc("POST /api/decks/import", s.handleImportDeck)
	s.router.HandleFunc("GET /api/decks/{id}", s.handleGetDeck)
	s.router.HandleFunc("PATCH /api/decks/{id}", s.handleUpdateDeck)
	s.router.HandleFunc("DELETE /api/decks/{id}", s.handleDeleteDeck)
	s.router.HandleFunc("GET /api/decks/{id}/themes", s.handleListDeckThemes)
	s.router.HandleFunc("GET /api/decks/{id}/flashcards", s.handleListDeckFlashcards)
	s.router.HandleFunc("GET /api/decks/{id}/export", s.handleExportDeck)

	s.router.HandleFunc("POST /api/themes", s.handleCreateTheme)
	s.router.HandleFunc("GET /api/themes/{id}", s.handleGetTheme)
	s.router.HandleFunc("PATCH /api/themes/{id}", s.handleUpdateTheme)
	s.router.HandleFunc("DELETE /api/themes/{id}", s.handleDeleteTheme)
	s.router.HandleFunc("GET /api/themes/{id}/flashcards", s.handleListThemeFlashcards)

	s.router.HandleFunc("POST /api/flashcards", s.handleCreateFlashcard)
	s.router.HandleFunc("GET /api/flashcards/{id}", s.handleGetFlashcard)
	s.router.HandleFunc("PATCH /api/flashcards/{id}", s.handleUpdateFlashcard)
	s.router.HandleFunc("DELETE /api/flashcards/{id}", s.handleDeleteFlashcard)

	s.router.HandleFunc("GET /api/session", s.handleGetSession)
	s.router.HandleFunc("POST /api/session", s.handleCreateSession)
	s.router.HandleFunc("DELETE /api/session", s.handleClearSession)
	s.router.HandleFunc("POST /api/session/login", s.handleLogin)
	s.router.HandleFunc("GET /api/session/stats", s.handleGetStats)
	s.router.HandleFunc("PATCH /api/session/stats", s.handleUpdateStats)
	s.router.HandleFunc("GET /api/session/export", s.handleExportSession)
	s.router.HandleFunc("POST /api/session/import", s.handleImportSession)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNoActiveDatabase):
		status = http.StatusConflict
	case errors.Is(err, archive.ErrInvalidArchive),
		errors.Is(err, engine.ErrCorruptDatabase):
		status = http.StatusBadRequest
	case errors.Is(err, blockstore.ErrPersistence),
		errors.Is(err, engine.ErrEngineLoad):
		status = http.StatusInternalServerError
	}
	s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// notFound is the wire shape of every nil/false result from the storage
// layer: absence is a successful call, not a failure.
func (s *Server) notFound(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.GetUser(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if u == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch domain.UserPatch
	if err := decodeBody(r, &patch); err != nil {
		s.badRequest(w, err)
		return
	}
	u, err := s.store.UpdateUser(r.Context(), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if u == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	set, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if set == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.UserSettingsPatch
	if err := decodeBody(r, &patch); err != nil {
		s.badRequest(w, err)
		return
	}
	set, err := s.store.UpdateSettings(r.Context(), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if set == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := s.store.GetDecks(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if decks == nil {
		decks = []domain.Deck{}
	}
	s.writeJSON(w, http.StatusOK, decks)
}

func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request) {
	var input domain.NewDeck
	if err := decodeBody(r, &input); err != nil {
		s.badRequest(w, err)
		return
	}
	deck, err := s.store.CreateDeck(r.Context(), input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, deck)
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := s.store.GetDeck(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if deck == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, deck)
}

func (s *Server) handleUpdateDeck(w http.ResponseWriter, r *http.Request) {
	var patch domain.DeckPatch
	if err := decodeBody(r, &patch); err != nil {
		s.badRequest(w, err)
		return
	}
	deck, err := s.store.UpdateDeck(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if deck == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, deck)
}

func (s *Server) handleDeleteDeck(w http.ResponseWriter, r *http.Request) {
	ok, err := s.store.DeleteDeck(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDeckThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := s.store.GetThemesByDeck(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if themes == nil {
		themes = []domain.Theme{}
	}
	s.writeJSON(w, http.StatusOK, themes)
}

func (s *Server) handleListDeckFlashcards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.GetFlashcardsByDeck(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cards == nil {
		cards = []domain.Flashcard{}
	}
	s.writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleExportDeck(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.ExportDeck(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if data == nil {
		s.notFound(w)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="deck_export.zip"`)
	_, _ = w.Write(data)
}

func (s *Server) handleImportDeck(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	deck, err := s.store.ImportDeck(r.Context(), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, deck)
}

func (s *Server) handleCreateTheme(w http.ResponseWriter, r *http.Request) {
	var input domain.NewTheme
	if err := decodeBody(r, &input); err != nil {
		s.badRequest(w, err)
		return
	}
	theme, err := s.store.CreateTheme(r.Context(), input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, theme)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.store.GetTheme(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if theme == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, theme)
}

func (s *Server) handleUpdateTheme(w http.ResponseWriter, r *http.Request) {
	var patch domain.ThemePatch
	if err := decodeBody(r, &patch); err != nil {
		s.badRequest(w, err)
		return
	}
	theme, err := s.store.UpdateTheme(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if theme == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, theme)
}

func (s *Server) handleDeleteTheme(w http.ResponseWriter, r *http.Request) {
	ok, err := s.store.DeleteTheme(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListThemeFlashcards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.GetFlashcardsByTheme(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cards == nil {
		cards = []domain.Flashcard{}
	}
	s.writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCreateFlashcard(w http.ResponseWriter, r *http.Request) {
	var input domain.NewFlashcard
	if err := decodeBody(r, &input); err != nil {
		s.badRequest(w, err)
		return
	}
	card, err := s.store.CreateFlashcard(r.Context(), input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleGetFlashcard(w http.ResponseWriter, r *http.Request) {
	card, err := s.store.GetFlashcard(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if card == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleUpdateFlashcard(w http.ResponseWriter, r *http.Request) {
	var patch domain.FlashcardPatch
	if err := decodeBody(r, &patch); err != nil {
		s.badRequest(w, err)
		return
	}
	card, err := s.store.UpdateFlashcard(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if card == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleDeleteFlashcard(w http.ResponseWriter, r *http.Request) {
	ok, err := s.store.DeleteFlashcard(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	has, err := s.sessions.HasSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := map[string]any{"active": has}
	if has {
		resp["sessionKey"] = s.sessions.CurrentKey()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	key, err := s.sessions.CreateSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"sessionKey": key})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.ClearSession(); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionKey string `json:"sessionKey"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if !session.IsValidSessionKey(req.SessionKey) {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed session key"})
		return
	}
	ok, err := s.sessions.LoadSessionByKey(r.Context(), req.SessionKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"sessionKey": req.SessionKey})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sessions.GetStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if stats == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUpdateStats(w http.ResponseWriter, r *http.Request) {
	var patch domain.StatsPatch
	if err := decodeBody(r, &patch); err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.sessions.UpdateStats(r.Context(), patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	stats, err := s.sessions.GetStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if stats == nil {
		s.notFound(w)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	data, err := s.sessions.ExportSessionToFile(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="memodeck_export.zip"`)
	_, _ = w.Write(data)
}

func (s *Server) handleImportSession(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	ok, err := s.sessions.ImportSessionFromFile(r.Context(), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "import failed"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"imported": true})
}
