package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apruvost/memodeck/internal/domain"
)

// GetDecks returns every deck, newest first.
func (s *Store) GetDecks(ctx context.Context) ([]domain.Deck, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
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
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// GetDeck returns one deck by id, or nil when it does not exist.
func (s *Store) GetDeck(ctx context.Context, id string) (*domain.Deck, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	row := h.DB().QueryRowContext(ctx,
		`SELECT `+deckColumns+` FROM decks WHERE id = ?`, id)
	d, err := scanDeck(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read deck %s: %w", id, err)
	}
	return &d, nil
}

// CreateDeck inserts a new deck and persists. An empty AuthorID defaults to
// the active user.
func (s *Store) CreateDeck(ctx context.Context, input domain.NewDeck) (*domain.Deck, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	if input.AuthorID == "" {
		input.AuthorID = s.userID
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid deck: %w", err)
	}

	id := newID("deck")
	now := fmtTime(time.Now())
	_, err = h.DB().ExecContext(ctx,
		`INSERT INTO decks (id, title, description, cover_image, author_id, is_public, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.Title, input.Description, nullIfEmpty(input.CoverImage),
		input.AuthorID, boolToInt(input.IsPublic), encodeTags(input.Tags), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert deck: %w", err)
	}

	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.GetDeck(ctx, id)
}

// UpdateDeck applies a sparse patch. Returns nil when the deck is missing;
// an empty patch returns the current record without bumping updated_at.
func (s *Store) UpdateDeck(ctx context.Context, id string, patch domain.DeckPatch) (*domain.Deck, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.GetDeck(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, *patch.Description)
	}
	if patch.CoverImage != nil {
		sets, args = append(sets, "cover_image = ?"), append(args, nullIfEmpty(*patch.CoverImage))
	}
	if patch.IsPublic != nil {
		sets, args = append(sets, "is_public = ?"), append(args, boolToInt(*patch.IsPublic))
	}
	if patch.Tags != nil {
		sets, args = append(sets, "tags = ?"), append(args, encodeTags(patch.Tags))
	}
	sets, args = append(sets, "updated_at = ?"), append(args, fmtTime(time.Now()))
	args = append(args, id)

	if _, err := h.DB().ExecContext(ctx,
		`UPDATE decks SET `+joinSets(sets)+` WHERE id = ?`, args...); err != nil {
		return nil, fmt.Errorf("failed to update deck %s: %w", id, err)
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.GetDeck(ctx, id)
}

// DeleteDeck removes a deck; the schema cascades to its themes and
// flashcards. Returns false when no deck has that id.
func (s *Store) DeleteDeck(ctx context.Context, id string) (bool, error) {
	h, err := s.active()
	if err != nil {
		return false, err
	}

	var count int
	if err := h.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM decks WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check deck %s: %w", id, err)
	}
	if count == 0 {
		return false, nil
	}

	if _, err := h.DB().ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete deck %s: %w", id, err)
	}
	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}
