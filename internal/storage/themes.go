package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apruvost/memodeck/internal/domain"
)

// GetThemes returns every theme, newest first.
func (s *Store) GetThemes(ctx context.Context) ([]domain.Theme, error) {
	return s.listThemes(ctx, `SELECT `+themeColumns+` FROM themes ORDER BY created_at DESC`)
}

// GetThemesByDeck returns the themes of one deck, newest first.
func (s *Store) GetThemesByDeck(ctx context.Context, deckID string) ([]domain.Theme, error) {
	return s.listThemes(ctx,
		`SELECT `+themeColumns+` FROM themes WHERE deck_id = ? ORDER BY created_at DESC`, deckID)
}

func (s *Store) listThemes(ctx context.Context, query string, args ...any) ([]domain.Theme, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	rows, err := h.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list themes: %w", err)
	}
	defer rows.Close()

	var themes []domain.Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan theme row: %w", err)
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

// GetTheme returns one theme by id, or nil when it does not exist.
func (s *Store) GetTheme(ctx context.Context, id string) (*domain.Theme, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	row := h.DB().QueryRowContext(ctx,
		`SELECT `+themeColumns+` FROM themes WHERE id = ?`, id)
	t, err := scanTheme(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read theme %s: %w", id, err)
	}
	return &t, nil
}

// CreateTheme inserts a new theme under an existing deck and persists.
func (s *Store) CreateTheme(ctx context.Context, input domain.NewTheme) (*domain.Theme, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid theme: %w", err)
	}

	id := newID("theme")
	now := fmtTime(time.Now())
	_, err = h.DB().ExecContext(ctx,
		`INSERT INTO themes (id, deck_id, title, description, cover_image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, input.DeckID, input.Title, input.Description,
		nullIfEmpty(input.CoverImage), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert theme: %w", err)
	}

	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.GetTheme(ctx, id)
}

// UpdateTheme applies a sparse patch. Returns nil when the theme is missing.
func (s *Store) UpdateTheme(ctx context.Context, id string, patch domain.ThemePatch) (*domain.Theme, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.GetTheme(ctx, id)
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
	sets, args = append(sets, "updated_at = ?"), append(args, fmtTime(time.Now()))
	args = append(args, id)

	if _, err := h.DB().ExecContext(ctx,
		`UPDATE themes SET `+joinSets(sets)+` WHERE id = ?`, args...); err != nil {
		return nil, fmt.Errorf("failed to update theme %s: %w", id, err)
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.GetTheme(ctx, id)
}

// DeleteTheme removes a theme. Its flashcards stay, detached: the schema
// sets their theme_id to NULL. Returns false when no theme has that id.
func (s *Store) DeleteTheme(ctx context.Context, id string) (bool, error) {
	h, err := s.active()
	if err != nil {
		return false, err
	}

	var count int
	if err := h.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM themes WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check theme %s: %w", id, err)
	}
	if count == 0 {
		return false, nil
	}

	if _, err := h.DB().ExecContext(ctx, `DELETE FROM themes WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete theme %s: %w", id, err)
	}
	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}
