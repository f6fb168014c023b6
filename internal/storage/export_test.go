package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apruvost/memodeck/internal/archive"
	"github.com/apruvost/memodeck/internal/domain"
	"github.com/apruvost/memodeck/internal/engine"
)

func TestExportImportDatabase(t *testing.T) {
	src := newActiveStore(t)
	ctx := context.Background()

	deck, err := src.CreateDeck(ctx, domain.NewDeck{Title: "Portable", Tags: []string{"t"}})
	require.NoError(t, err)

	data, err := src.ExportDatabase(ctx)
	require.NoError(t, err)

	_, meta, err := archive.Unpack(data)
	require.NoError(t, err)
	require.Equal(t, "user_test", meta.UserID)
	require.Equal(t, archive.ScopeDatabase, meta.Scope)
	require.Equal(t, archive.FormatVersion, meta.Version)

	// A completely separate store restores the archive as its own state.
	dst := newTestStore(t)
	userID, err := dst.ImportDatabase(ctx, data)
	require.NoError(t, err)
	require.Equal(t, "user_test", userID)
	require.Equal(t, "user_test", dst.CurrentUserID())

	got, err := dst.GetDeck(ctx, deck.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Portable", got.Title)

	// The import persisted: a third store can load it from the block store.
	third := New(dst.eng, dst.blocks)
	t.Cleanup(func() { _ = third.Close() })
	ok, err := third.LoadUserDatabase(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestImportDatabaseRejectsGarbage(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ImportDatabase(context.Background(), []byte("junk"))
	require.ErrorIs(t, err, archive.ErrInvalidArchive)
}

func TestImportDatabaseRejectsUserlessImage(t *testing.T) {
	s := newActiveStore(t)
	ctx := context.Background()

	// Build an archive whose image has the schema but no user row.
	h, err := s.eng.NewDatabase(ctx)
	require.NoError(t, err)
	defer h.Close()
	require.NoError(t, ensureSchema(ctx, h))
	image, err := s.eng.Serialize(ctx, h)
	require.NoError(t, err)
	data, err := archive.Pack(image, archive.Metadata{Scope: archive.ScopeDatabase})
	require.NoError(t, err)

	_, err = s.ImportDatabase(ctx, data)
	require.ErrorIs(t, err, engine.ErrCorruptDatabase)
	require.Equal(t, "user_test", s.CurrentUserID(), "the active database is untouched")
}

func TestExportDeckMissing(t *testing.T) {
	s := newActiveStore(t)

	data, err := s.ExportDeck(context.Background(), "deck_missing")
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestExportImportDeck(t *testing.T) {
	src := newActiveStore(t)
	ctx := context.Background()

	deck, err := src.CreateDeck(ctx, domain.NewDeck{
		Title: "Partage",
		Tags:  []string{"pub"},
	})
	require.NoError(t, err)
	theme, err := src.CreateTheme(ctx, domain.NewTheme{DeckID: deck.ID, Title: "Bloc"})
	require.NoError(t, err)
	attached, err := src.CreateFlashcard(ctx, domain.NewFlashcard{
		DeckID:  deck.ID,
		ThemeID: theme.ID,
		Front:   domain.CardSide{Text: "q1"},
		Back:    domain.CardSide{Text: "r1"},
	})
	require.NoError(t, err)
	_, err = src.CreateFlashcard(ctx, domain.NewFlashcard{
		DeckID: deck.ID,
		Front:  domain.CardSide{Text: "q2"},
		Back:   domain.CardSide{Text: "r2"},
	})
	require.NoError(t, err)

	data, err := src.ExportDeck(ctx, deck.ID)
	require.NoError(t, err)

	_, meta, err := archive.Unpack(data)
	require.NoError(t, err)
	require.Equal(t, archive.ScopeDeck, meta.Scope)

	// Import into another user's database.
	dst := newTestStore(t)
	require.NoError(t, dst.CreateUserDatabase(ctx, "user_other"))

	imported, err := dst.ImportDeck(ctx, data)
	require.NoError(t, err)
	require.NotEqual(t, deck.ID, imported.ID, "imported deck gets a fresh id")
	require.Equal(t, "user_other", imported.AuthorID, "ownership moves to the importing user")
	require.Equal(t, "Partage", imported.Title)
	require.Equal(t, []string{"pub"}, imported.Tags)

	themes, err := dst.GetThemesByDeck(ctx, imported.ID)
	require.NoError(t, err)
	require.Len(t, themes, 1)
	require.NotEqual(t, theme.ID, themes[0].ID)
	require.Equal(t, "Bloc", themes[0].Title)

	cards, err := dst.GetFlashcardsByDeck(ctx, imported.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	for _, c := range cards {
		require.NotEqual(t, attached.ID, c.ID)
		if c.Front.Text == "q1" {
			require.Equal(t, themes[0].ID, c.ThemeID, "theme link follows the remapped id")
		} else {
			require.Empty(t, c.ThemeID)
		}
	}
}

func TestImportDeckIntoSameDatabaseDuplicates(t *testing.T) {
	s := newActiveStore(t)
	ctx := context.Background()

	deck, err := s.CreateDeck(ctx, domain.NewDeck{Title: "Double"})
	require.NoError(t, err)
	data, err := s.ExportDeck(ctx, deck.ID)
	require.NoError(t, err)

	imported, err := s.ImportDeck(ctx, data)
	require.NoError(t, err)
	require.NotEqual(t, deck.ID, imported.ID)

	decks, err := s.GetDecks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 2, "re-importing an own deck makes an independent copy")
}

func TestImportDeckRequiresActiveDatabase(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ImportDeck(context.Background(), []byte("junk"))
	require.ErrorIs(t, err, ErrNoActiveDatabase)
}
