package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apruvost/memodeck/internal/blockstore"
	"github.com/apruvost/memodeck/internal/domain"
	"github.com/apruvost/memodeck/internal/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s := New(
		engine.New(filepath.Join(dir, "scratch")),
		blockstore.New(filepath.Join(dir, "blocks")),
	)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newActiveStore returns a store with a fresh database for "user_test".
func newActiveStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	require.NoError(t, s.CreateUserDatabase(context.Background(), "user_test"))
	return s
}

func TestNoActiveDatabase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetUser(ctx)
	require.ErrorIs(t, err, ErrNoActiveDatabase)
	_, err = s.GetDecks(ctx)
	require.ErrorIs(t, err, ErrNoActiveDatabase)
	_, err = s.CreateDeck(ctx, domain.NewDeck{Title: "t"})
	require.ErrorIs(t, err, ErrNoActiveDatabase)
	_, err = s.DeleteDeck(ctx, "deck_x")
	require.ErrorIs(t, err, ErrNoActiveDatabase)
	require.Empty(t, s.CurrentUserID())
}

func TestCreateUserDatabaseDefaults(t *testing.T) {
	s := newActiveStore(t)
	ctx := context.Background()

	require.Equal(t, "user_test", s.CurrentUserID())

	u, err := s.GetUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, "user_test", u.ID)
	require.Equal(t, "Utilisateur", u.Name)
	require.Equal(t, "utilisateur@example.com", u.Email)
	require.False(t, u.CreatedAt.IsZero())

	set, err := s.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, set)
	require.Equal(t, "user_test", set.UserID)
	require.Equal(t, "light", set.ThemePreference)
	require.Equal(t, "fr", set.Language)
	require.True(t, set.StudyReminders)
	require.JSONEq(t, `{"initialized":true}`, set.SettingsJSON)
}

func TestLoadUserDatabaseUnknown(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.LoadUserDatabase(context.Background(), "user_nobody")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, s.CurrentUserID())
}

func TestPersistAndReload(t *testing.T) {
	s := newActiveStore(t)
	ctx := context.Background()

	deck, err := s.CreateDeck(ctx, domain.NewDeck{Title: "Anatomie", Tags: []string{"med"}})
	require.NoError(t, err)

	// A second store over the same block store sees the persisted state.
	s2 := New(s.eng, s.blocks)
	t.Cleanup(func() { _ = s2.Close() })

	ok, err := s2.LoadUserDatabase(ctx, "user_test")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "user_test", s2.CurrentUserID())

	got, err := s2.GetDeck(ctx, deck.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Anatomie", got.Title)
	require.Equal(t, []string{"med"}, got.Tags)
}

func TestUpdateUserPatch(t *testing.T) {
	s := newActiveStore(t)
	ctx := context.Background()

	name := "Pauline"
	u, err := s.UpdateUser(ctx, domain.UserPatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Pauline", u.Name)
	require.Equal(t, "utilisateur@example.com", u.Email, "untouched field survives")

	// Empty patch is a pure read.
	u, err = s.UpdateUser(ctx, domain.UserPatch{})
	require.NoError(t, err)
	require.Equal(t, "Pauline", u.Name)

	// Setting avatar to "" stores NULL and reads back empty.
	avatar := ""
	u, err = s.UpdateUser(ctx, domain.UserPatch{Avatar: &avatar})
	require.NoError(t, err)
	require.Empty(t, u.Avatar)
}

func TestUpdateSettingsPatch(t *testing.T) {
	s := newActiveStore(t)
	ctx := context.Background()

	theme := "dark"
	reminders := false
	set, err := s.UpdateSettings(ctx, domain.UserSettingsPatch{
		ThemePreference: &theme,
		StudyReminders:  &reminders,
	})
	require.NoError(t, err)
	require.Equal(t, "dark", set.ThemePreference)
	require.False(t, set.StudyReminders)
	require.Equal(t, "fr", set.Language, "untouched field survives")
}

func TestIsOwner(t *testing.T) {
	s := newActiveStore(t)
	require.True(t, s.IsOwner("user_test"))
	require.False(t, s.IsOwner("user_other"))
	require.False(t, s.IsOwner(""))

	require.NoError(t, s.Close())
	require.False(t, s.IsOwner("user_test"), "no owner without an active database")
}
