package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apruvost/memodeck/internal/archive"
	"github.com/apruvost/memodeck/internal/domain"
	"github.com/apruvost/memodeck/internal/engine"
)

// ExportDatabase serializes the whole active database into a portable
// archive.
func (s *Store) ExportDatabase(ctx context.Context) ([]byte, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	data, err := s.eng.Serialize(ctx, h)
	if err != nil {
		return nil, err
	}
	return archive.Pack(data, archive.Metadata{
		ExportDate: time.Now().UTC(),
		UserID:     s.userID,
		Scope:      archive.ScopeDatabase,
	})
}

// ImportDatabase replaces the active database with the one embedded in the
// archive. The owning user id is recovered from the imported users row, the
// handle becomes active, and the image is persisted under that id, creating
// or overwriting that user's stored database.
func (s *Store) ImportDatabase(ctx context.Context, archiveBytes []byte) (string, error) {
	dbImage, _, err := archive.Unpack(archiveBytes)
	if err != nil {
		return "", err
	}

	h, err := s.eng.OpenDatabase(ctx, dbImage)
	if err != nil {
		return "", err
	}
	if err := ensureSchema(ctx, h); err != nil {
		_ = h.Close()
		return "", err
	}

	var userID string
	err = h.DB().QueryRowContext(ctx, `SELECT id FROM users LIMIT 1`).Scan(&userID)
	if err != nil {
		_ = h.Close()
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("%w: no user row", engine.ErrCorruptDatabase)
		}
		return "", fmt.Errorf("%w: %v", engine.ErrCorruptDatabase, err)
	}

	s.swapHandle(h, userID)
	if err := s.persist(ctx); err != nil {
		return "", err
	}
	return userID, nil
}

// ExportDeck packs one deck, its themes and its flashcards into an archive
// with the same envelope as a whole-database export: the embedded image is a
// fresh database holding only that subset. Returns nil when the deck does
// not exist.
func (s *Store) ExportDeck(ctx context.Context, deckID string) ([]byte, error) {
	deck, err := s.GetDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, nil
	}
	themes, err := s.GetThemesByDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	cards, err := s.GetFlashcardsByDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}

	scratch, err := s.eng.NewDatabase(ctx)
	if err != nil {
		return nil, err
	}
	defer scratch.Close()

	if err := ensureSchema(ctx, scratch); err != nil {
		return nil, err
	}
	if err := insertDeckRow(ctx, scratch, *deck); err != nil {
		return nil, err
	}
	for _, t := range themes {
		if err := insertThemeRow(ctx, scratch, t); err != nil {
			return nil, err
		}
	}
	for _, f := range cards {
		if err := insertFlashcardRow(ctx, scratch, f); err != nil {
			return nil, err
		}
	}

	data, err := s.eng.Serialize(ctx, scratch)
	if err != nil {
		return nil, err
	}
	return archive.Pack(data, archive.Metadata{
		ExportDate: time.Now().UTC(),
		UserID:     s.userID,
		Scope:      archive.ScopeDeck,
	})
}

// ImportDeck inserts a deck archive's contents into the active database.
// Every imported row gets a fresh identifier so existing records are never
// collided with or overwritten, and the deck is re-owned by the active user.
func (s *Store) ImportDeck(ctx context.Context, archiveBytes []byte) (*domain.Deck, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}

	dbImage, _, err := archive.Unpack(archiveBytes)
	if err != nil {
		return nil, err
	}
	src, err := s.eng.OpenDatabase(ctx, dbImage)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	decks, err := readDecks(ctx, src)
	if err != nil {
		return nil, err
	}
	if len(decks) == 0 {
		return nil, fmt.Errorf("%w: no deck row", engine.ErrCorruptDatabase)
	}
	deck := decks[0]
	themes, err := readThemesByDeck(ctx, src, deck.ID)
	if err != nil {
		return nil, err
	}
	cards, err := readFlashcardsByDeck(ctx, src, deck.ID)
	if err != nil {
		return nil, err
	}

	deck.ID = newID("deck")
	deck.AuthorID = s.userID
	themeIDs := make(map[string]string, len(themes))
	for i := range themes {
		themeIDs[themes[i].ID] = newID("theme")
		themes[i].ID = themeIDs[themes[i].ID]
		themes[i].DeckID = deck.ID
	}
	for i := range cards {
		cards[i].ID = newID("card")
		cards[i].DeckID = deck.ID
		if cards[i].ThemeID != "" {
			// A dangling theme reference in the archive detaches the card.
			cards[i].ThemeID = themeIDs[cards[i].ThemeID]
		}
	}

	if err := insertDeckRow(ctx, h, deck); err != nil {
		return nil, err
	}
	for _, t := range themes {
		if err := insertThemeRow(ctx, h, t); err != nil {
			return nil, err
		}
	}
	for _, f := range cards {
		if err := insertFlashcardRow(ctx, h, f); err != nil {
			return nil, err
		}
	}

	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.GetDeck(ctx, deck.ID)
}

// Row readers and writers below work on an explicit handle so they can serve
// both the active database and scratch databases built for deck archives.

func readDecks(ctx context.Context, h *engine.Handle) ([]domain.Deck, error) {
	rows, err := h.DB().QueryContext(ctx,
		`SELECT `+deckColumns+` FROM decks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

func readThemesByDeck(ctx context.Context, h *engine.Handle, deckID string) ([]domain.Theme, error) {
	rows, err := h.DB().QueryContext(ctx,
		`SELECT `+themeColumns+` FROM themes WHERE deck_id = ?`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to list themes: %w", err)
	}
	defer rows.Close()

	var themes []domain.Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

func readFlashcardsByDeck(ctx context.Context, h *engine.Handle, deckID string) ([]domain.Flashcard, error) {
	rows, err := h.DB().QueryContext(ctx,
		`SELECT `+flashcardColumns+` FROM flashcards WHERE deck_id = ?`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flashcards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Flashcard
	for rows.Next() {
		f, err := scanFlashcard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, f)
	}
	return cards, rows.Err()
}

func insertDeckRow(ctx context.Context, h *engine.Handle, d domain.Deck) error {
	_, err := h.DB().ExecContext(ctx,
		`INSERT INTO decks (id, title, description, cover_image, author_id, is_public, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Description, nullIfEmpty(d.CoverImage), d.AuthorID,
		boolToInt(d.IsPublic), encodeTags(d.Tags), fmtTime(d.CreatedAt), fmtTime(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to copy deck %s: %w", d.ID, err)
	}
	return nil
}

func insertThemeRow(ctx context.Context, h *engine.Handle, t domain.Theme) error {
	_, err := h.DB().ExecContext(ctx,
		`INSERT INTO themes (id, deck_id, title, description, cover_image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.DeckID, t.Title, t.Description, nullIfEmpty(t.CoverImage),
		fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to copy theme %s: %w", t.ID, err)
	}
	return nil
}

func insertFlashcardRow(ctx context.Context, h *engine.Handle, f domain.Flashcard) error {
	_, err := h.DB().ExecContext(ctx,
		`INSERT INTO flashcards (
			id, deck_id, theme_id,
			front_text, front_image, front_audio, front_additional_info,
			back_text, back_image, back_audio, back_additional_info,
			created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.DeckID, nullIfEmpty(f.ThemeID),
		f.Front.Text, nullIfEmpty(f.Front.Image), nullIfEmpty(f.Front.Audio), nullIfEmpty(f.Front.AdditionalInfo),
		f.Back.Text, nullIfEmpty(f.Back.Image), nullIfEmpty(f.Back.Audio), nullIfEmpty(f.Back.AdditionalInfo),
		fmtTime(f.CreatedAt), fmtTime(f.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to copy flashcard %s: %w", f.ID, err)
	}
	return nil
}
