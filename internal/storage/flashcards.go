package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apruvost/memodeck/internal/domain"
)

// GetFlashcards returns every flashcard, newest first.
func (s *Store) GetFlashcards(ctx context.Context) ([]domain.Flashcard, error) {
	return s.listFlashcards(ctx,
		`SELECT `+flashcardColumns+` FROM flashcards ORDER BY created_at DESC`)
}

// GetFlashcardsByDeck returns the flashcards of one deck, newest first.
func (s *Store) GetFlashcardsByDeck(ctx context.Context, deckID string) ([]domain.Flashcard, error) {
	return s.listFlashcards(ctx,
		`SELECT `+flashcardColumns+` FROM flashcards WHERE deck_id = ? ORDER BY created_at DESC`, deckID)
}

// GetFlashcardsByTheme returns the flashcards attached to one theme.
func (s *Store) GetFlashcardsByTheme(ctx context.Context, themeID string) ([]domain.Flashcard, error) {
	return s.listFlashcards(ctx,
		`SELECT `+flashcardColumns+` FROM flashcards WHERE theme_id = ? ORDER BY created_at DESC`, themeID)
}

func (s *Store) listFlashcards(ctx context.Context, query string, args ...any) ([]domain.Flashcard, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	rows, err := h.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list flashcards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Flashcard
	for rows.Next() {
		f, err := scanFlashcard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flashcard row: %w", err)
		}
		cards = append(cards, f)
	}
	return cards, rows.Err()
}

// GetFlashcard returns one flashcard by id, or nil when it does not exist.
func (s *Store) GetFlashcard(ctx context.Context, id string) (*domain.Flashcard, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	row := h.DB().QueryRowContext(ctx,
		`SELECT `+flashcardColumns+` FROM flashcards WHERE id = ?`, id)
	f, err := scanFlashcard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read flashcard %s: %w", id, err)
	}
	return &f, nil
}

// CreateFlashcard inserts a new flashcard and persists. Media fields travel
// inline as base64 text.
func (s *Store) CreateFlashcard(ctx context.Context, input domain.NewFlashcard) (*domain.Flashcard, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid flashcard: %w", err)
	}

	id := newID("card")
	now := fmtTime(time.Now())
	_, err = h.DB().ExecContext(ctx,
		`INSERT INTO flashcards (
			id, deck_id, theme_id,
			front_text, front_image, front_audio, front_additional_info,
			back_text, back_image, back_audio, back_additional_info,
			created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.DeckID, nullIfEmpty(input.ThemeID),
		input.Front.Text, nullIfEmpty(input.Front.Image), nullIfEmpty(input.Front.Audio), nullIfEmpty(input.Front.AdditionalInfo),
		input.Back.Text, nullIfEmpty(input.Back.Image), nullIfEmpty(input.Back.Audio), nullIfEmpty(input.Back.AdditionalInfo),
		now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert flashcard: %w", err)
	}

	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.GetFlashcard(ctx, id)
}

// UpdateFlashcard applies a sparse patch. Returns nil when the card is
// missing. Setting ThemeID to "" detaches the card from its theme.
func (s *Store) UpdateFlashcard(ctx context.Context, id string, patch domain.FlashcardPatch) (*domain.Flashcard, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.GetFlashcard(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	appendSide := func(prefix string, side domain.SidePatch) {
		if side.Text != nil {
			sets, args = append(sets, prefix+"_text = ?"), append(args, *side.Text)
		}
		if side.Image != nil {
			sets, args = append(sets, prefix+"_image = ?"), append(args, nullIfEmpty(*side.Image))
		}
		if side.Audio != nil {
			sets, args = append(sets, prefix+"_audio = ?"), append(args, nullIfEmpty(*side.Audio))
		}
		if side.AdditionalInfo != nil {
			sets, args = append(sets, prefix+"_additional_info = ?"), append(args, nullIfEmpty(*side.AdditionalInfo))
		}
	}
	appendSide("front", patch.Front)
	appendSide("back", patch.Back)
	if patch.ThemeID != nil {
		sets, args = append(sets, "theme_id = ?"), append(args, nullIfEmpty(*patch.ThemeID))
	}
	sets, args = append(sets, "updated_at = ?"), append(args, fmtTime(time.Now()))
	args = append(args, id)

	if _, err := h.DB().ExecContext(ctx,
		`UPDATE flashcards SET `+joinSets(sets)+` WHERE id = ?`, args...); err != nil {
		return nil, fmt.Errorf("failed to update flashcard %s: %w", id, err)
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.GetFlashcard(ctx, id)
}

// DeleteFlashcard removes one flashcard. Returns false when no card has
// that id.
func (s *Store) DeleteFlashcard(ctx context.Context, id string) (bool, error) {
	h, err := s.active()
	if err != nil {
		return false, err
	}

	var count int
	if err := h.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM flashcards WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check flashcard %s: %w", id, err)
	}
	if count == 0 {
		return false, nil
	}

	if _, err := h.DB().ExecContext(ctx, `DELETE FROM flashcards WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete flashcard %s: %w", id, err)
	}
	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}
