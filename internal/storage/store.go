// Package storage owns "the current database" for the active session. It
// defines the fixed relational schema, maps rows to typed records, and runs
// every CRUD operation. Each mutation re-serializes the whole database and
// writes it through the block store before returning; reads never persist.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/apruvost/memodeck/internal/blockstore"
	"github.com/apruvost/memodeck/internal/domain"
	"github.com/apruvost/memodeck/internal/engine"
)

// Defaults for the account row created with a fresh database.
const (
	defaultUserName  = "Utilisateur"
	defaultUserEmail = "utilisateur@example.com"
)

// Store is the single owner of the active database handle and user id.
// One Store per logical session; loading another user's database discards
// the previous handle without persisting it.
type Store struct {
	eng      *engine.Engine
	blocks   *blockstore.Store
	validate *validator.Validate

	handle *engine.Handle
	userID string
}

// New returns a store with no active database. Callers must create or load
// a user database before any CRUD call.
func New(eng *engine.Engine, blocks *blockstore.Store) *Store {
	return &Store{
		eng:      eng,
		blocks:   blocks,
		validate: validator.New(),
	}
}

// CurrentUserID returns the active user id, or "" when no database is open.
func (s *Store) CurrentUserID() string {
	return s.userID
}

// IsOwner reports whether authorID belongs to the active user.
func (s *Store) IsOwner(authorID string) bool {
	return s.userID != "" && s.userID == authorID
}

// Close releases the active handle, if any, without persisting.
func (s *Store) Close() error {
	if s.handle == nil {
		return nil
	}
	err := s.handle.Close()
	s.handle = nil
	s.userID = ""
	return err
}

// CreateUserDatabase creates a fresh database for userID: schema, the default
// user row and its settings row, then persists the result. This is the only
// path that creates a User.
func (s *Store) CreateUserDatabase(ctx context.Context, userID string) error {
	h, err := s.eng.NewDatabase(ctx)
	if err != nil {
		return err
	}

	if err := ensureSchema(ctx, h); err != nil {
		_ = h.Close()
		return err
	}

	now := fmtTime(time.Now())
	if _, err := h.DB().ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		userID, defaultUserName, defaultUserEmail, now,
	); err != nil {
		_ = h.Close()
		return fmt.Errorf("failed to create default user: %w", err)
	}
	if _, err := h.DB().ExecContext(ctx,
		`INSERT INTO user_settings (user_id, settings_json) VALUES (?, ?)`,
		userID, `{"initialized":true}`,
	); err != nil {
		_ = h.Close()
		return fmt.Errorf("failed to create default settings: %w", err)
	}

	s.swapHandle(h, userID)
	return s.persist(ctx)
}

// LoadUserDatabase loads userID's serialized database from the block store.
// It returns false when no such database exists; that is "no such account",
// not a failure.
func (s *Store) LoadUserDatabase(ctx context.Context, userID string) (bool, error) {
	data, ok, err := s.blocks.Get(ctx, blockstore.Databases, userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	h, err := s.eng.OpenDatabase(ctx, data)
	if err != nil {
		return false, err
	}
	// Databases written by older versions may predate newer tables.
	if err := ensureSchema(ctx, h); err != nil {
		_ = h.Close()
		return false, err
	}

	s.swapHandle(h, userID)
	return true, nil
}

// swapHandle installs a new active handle, discarding the previous one
// without persisting it. Callers that care must have persisted already.
func (s *Store) swapHandle(h *engine.Handle, userID string) {
	if s.handle != nil {
		_ = s.handle.Close()
	}
	s.handle = h
	s.userID = userID
}

// active returns the current handle or ErrNoActiveDatabase.
func (s *Store) active() (*engine.Handle, error) {
	if s.handle == nil {
		return nil, ErrNoActiveDatabase
	}
	return s.handle, nil
}

// persist serializes the whole database and writes it through the block
// store. Exactly one attempt; on failure the in-memory state keeps the
// mutation and the durable copy does not.
func (s *Store) persist(ctx context.Context) error {
	h, err := s.active()
	if err != nil {
		return err
	}
	data, err := s.eng.Serialize(ctx, h)
	if err != nil {
		return err
	}
	return s.blocks.Put(ctx, blockstore.Databases, s.userID, data)
}

// ensureSchema applies the schema to h. Safe to call more than once.
func ensureSchema(ctx context.Context, h *engine.Handle) error {
	if _, err := h.DB().ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// GetUser returns the database's single user row. nil means the row is
// missing, which only happens on a corrupted import.
func (s *Store) GetUser(ctx context.Context) (*domain.User, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	row := h.DB().QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, s.userID)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	return &u, nil
}

// UpdateUser applies a sparse patch to the user row. An empty patch returns
// the current record without touching the database.
func (s *Store) UpdateUser(ctx context.Context, patch domain.UserPatch) (*domain.User, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.GetUser(ctx)
	}

	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *patch.Name)
	}
	if patch.Email != nil {
		sets, args = append(sets, "email = ?"), append(args, *patch.Email)
	}
	if patch.Avatar != nil {
		sets, args = append(sets, "avatar = ?"), append(args, nullIfEmpty(*patch.Avatar))
	}
	if patch.Bio != nil {
		sets, args = append(sets, "bio = ?"), append(args, nullIfEmpty(*patch.Bio))
	}
	args = append(args, s.userID)

	if _, err := h.DB().ExecContext(ctx,
		`UPDATE users SET `+joinSets(sets)+` WHERE id = ?`, args...); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.GetUser(ctx)
}

// GetSettings returns the active user's settings row.
func (s *Store) GetSettings(ctx context.Context) (*domain.UserSettings, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	row := h.DB().QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM user_settings WHERE user_id = ?`, s.userID)
	set, err := scanSettings(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return &set, nil
}

// UpdateSettings applies a sparse patch to the settings row.
func (s *Store) UpdateSettings(ctx context.Context, patch domain.UserSettingsPatch) (*domain.UserSettings, error) {
	h, err := s.active()
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.GetSettings(ctx)
	}

	var (
		sets []string
		args []any
	)
	if patch.ThemePreference != nil {
		sets, args = append(sets, "theme_preference = ?"), append(args, *patch.ThemePreference)
	}
	if patch.Language != nil {
		sets, args = append(sets, "language = ?"), append(args, *patch.Language)
	}
	if patch.StudyReminders != nil {
		sets, args = append(sets, "study_reminders = ?"), append(args, boolToInt(*patch.StudyReminders))
	}
	if patch.SettingsJSON != nil {
		sets, args = append(sets, "settings_json = ?"), append(args, nullIfEmpty(*patch.SettingsJSON))
	}
	args = append(args, s.userID)

	if _, err := h.DB().ExecContext(ctx,
		`UPDATE user_settings SET `+joinSets(sets)+` WHERE user_id = ?`, args...); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return s.GetSettings(ctx)
}

// newID returns a prefixed opaque identifier, unique per entity kind.
func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func joinSets(sets []string) string {
	return strings.Join(sets, ", ")
}
