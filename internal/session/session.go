// Package session maps short human-typeable keys to user databases. A
// session key is the only credential: whoever types it gets the matching
// database. Records live in the block store's sessions collection; the
// "current session" marker is a small local state file.
package session

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/apruvost/memodeck/internal/blockstore"
	"github.com/apruvost/memodeck/internal/domain"
	"github.com/apruvost/memodeck/internal/storage"
)

const (
	keyLength  = 10
	keyCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	stateFileName = "current_session"
)

var keyPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// Directory resolves session keys to user databases and owns the current
// session's stats record.
type Directory struct {
	blocks *blockstore.Store
	store  *storage.Store
	log    *slog.Logger

	statePath string
}

// New returns a directory backed by the given block store and store manager.
// The current-session marker is kept next to the block store root.
func New(blocks *blockstore.Store, store *storage.Store, log *slog.Logger) *Directory {
	if log == nil {
		log = slog.Default()
	}
	return &Directory{
		blocks:    blocks,
		store:     store,
		log:       log,
		statePath: filepath.Join(blocks.Root(), stateFileName),
	}
}

// GenerateSessionKey produces a 10-character uppercase alphanumeric key.
// Uniqueness against existing keys is not checked; the keyspace is treated
// as large enough.
func GenerateSessionKey() string {
	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; there is no
		// weaker source worth falling back to.
		panic(fmt.Sprintf("session key entropy unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = keyCharset[int(b)%len(keyCharset)]
	}
	return string(buf)
}

// IsValidSessionKey reports whether key has the expected shape.
func IsValidSessionKey(key string) bool {
	return keyPattern.MatchString(key)
}

// CreateSession makes a brand-new user: fresh database, zeroed stats, new
// session key. The key becomes the current session and is returned for
// display; it is the only way back into the account.
func (d *Directory) CreateSession(ctx context.Context) (string, error) {
	userID := "user_" + uuid.NewString()
	key := GenerateSessionKey()

	if err := d.store.CreateUserDatabase(ctx, userID); err != nil {
		return "", err
	}

	rec := domain.SessionRecord{
		UserID:       userID,
		SessionKey:   key,
		LastActivity: time.Now().UTC(),
		Stats:        zeroStats(),
	}
	if err := d.putRecord(ctx, rec); err != nil {
		return "", err
	}
	if err := d.setCurrentKey(key); err != nil {
		return "", err
	}

	d.log.Info("session created", "user_id", userID)
	return key, nil
}

// LoadSessionByKey resolves key and loads that user's database. Returns
// false when the key is unknown or the database is gone; current-session
// state is only touched on success.
func (d *Directory) LoadSessionByKey(ctx context.Context, key string) (bool, error) {
	rec, ok, err := d.getRecord(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	loaded, err := d.store.LoadUserDatabase(ctx, rec.UserID)
	if err != nil {
		return false, err
	}
	if !loaded {
		// The record survived but the database did not. Report failure and
		// leave the current session alone.
		d.log.Warn("session record points at missing database", "user_id", rec.UserID)
		return false, nil
	}

	if err := d.setCurrentKey(key); err != nil {
		return false, err
	}
	rec.LastActivity = time.Now().UTC()
	if err := d.putRecord(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// HasSession reports whether a current session key is set locally and still
// resolves to a record. Keys never expire.
func (d *Directory) HasSession(ctx context.Context) (bool, error) {
	key := d.CurrentKey()
	if key == "" {
		return false, nil
	}
	_, ok, err := d.getRecord(ctx, key)
	return ok, err
}

// ClearSession forgets the current session key. The record and the database
// stay in the block store; the key can log back in.
func (d *Directory) ClearSession() error {
	if err := os.Remove(d.statePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: clear session state: %v", blockstore.ErrPersistence, err)
	}
	return nil
}

// CurrentKey returns the locally stored session key, or "".
func (d *Directory) CurrentKey() string {
	data, err := os.ReadFile(d.statePath)
	if err != nil {
		return ""
	}
	key := string(bytes.TrimSpace(data))
	if !IsValidSessionKey(key) {
		return ""
	}
	return key
}

// GetStats returns the current session's stats, or nil without a session.
func (d *Directory) GetStats(ctx context.Context) (*domain.StudyStats, error) {
	key := d.CurrentKey()
	if key == "" {
		return nil, nil
	}
	rec, ok, err := d.getRecord(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	return &rec.Stats, nil
}

// UpdateStats merges a sparse patch into the current session's stats. Fields
// present in the patch replace the stored value. AverageScore is recomputed
// when either answer counter changed and at least one answer exists;
// otherwise it keeps its previous value.
func (d *Directory) UpdateStats(ctx context.Context, patch domain.StatsPatch) error {
	key := d.CurrentKey()
	if key == "" {
		return nil
	}
	rec, ok, err := d.getRecord(ctx, key)
	if err != nil || !ok {
		return err
	}

	st := &rec.Stats
	if patch.TotalStudyTime != nil {
		st.TotalStudyTime = *patch.TotalStudyTime
	}
	if patch.StudySessions != nil {
		st.StudySessions = *patch.StudySessions
	}
	if patch.CardsReviewed != nil {
		st.CardsReviewed = *patch.CardsReviewed
	}
	if patch.CorrectAnswers != nil {
		st.CorrectAnswers = *patch.CorrectAnswers
	}
	if patch.IncorrectAnswers != nil {
		st.IncorrectAnswers = *patch.IncorrectAnswers
	}
	if patch.StreakDays != nil {
		st.StreakDays = *patch.StreakDays
	}
	if patch.LastStudyDate != nil {
		st.LastStudyDate = *patch.LastStudyDate
	}
	if patch.StudyDays != nil {
		st.StudyDays = patch.StudyDays
	}

	if patch.CorrectAnswers != nil || patch.IncorrectAnswers != nil {
		total := st.CorrectAnswers + st.IncorrectAnswers
		if total > 0 {
			st.AverageScore = int(math.Round(float64(st.CorrectAnswers) / float64(total) * 100))
		}
	}

	rec.LastActivity = time.Now().UTC()
	return d.putRecord(ctx, rec)
}

// RecordCardStudy folds one reviewed card into the stats: counters grow by
// one and study time by the given minutes.
func (d *Directory) RecordCardStudy(ctx context.Context, correct bool, minutes int) error {
	key := d.CurrentKey()
	if key == "" {
		return nil
	}
	rec, ok, err := d.getRecord(ctx, key)
	if err != nil || !ok {
		return err
	}

	reviewed := rec.Stats.CardsReviewed + 1
	studyTime := rec.Stats.TotalStudyTime + minutes
	today := time.Now().UTC().Format(time.RFC3339)
	patch := domain.StatsPatch{
		CardsReviewed:  &reviewed,
		TotalStudyTime: &studyTime,
		LastStudyDate:  &today,
	}
	if correct {
		n := rec.Stats.CorrectAnswers + 1
		patch.CorrectAnswers = &n
	} else {
		n := rec.Stats.IncorrectAnswers + 1
		patch.IncorrectAnswers = &n
	}
	return d.UpdateStats(ctx, patch)
}

// UpdateLastActivity stamps the current session record. No-op without a
// session.
func (d *Directory) UpdateLastActivity(ctx context.Context) error {
	key := d.CurrentKey()
	if key == "" {
		return nil
	}
	rec, ok, err := d.getRecord(ctx, key)
	if err != nil || !ok {
		return err
	}
	rec.LastActivity = time.Now().UTC()
	return d.putRecord(ctx, rec)
}

// ExportSessionToFile packs the current session's whole database into a
// portable archive.
func (d *Directory) ExportSessionToFile(ctx context.Context) ([]byte, error) {
	return d.store.ExportDatabase(ctx)
}

// ImportSessionFromFile restores a whole-database archive as a new session:
// the embedded database becomes active and persisted, and a fresh session
// key with zeroed stats points at it.
func (d *Directory) ImportSessionFromFile(ctx context.Context, archiveBytes []byte) (bool, error) {
	userID, err := d.store.ImportDatabase(ctx, archiveBytes)
	if err != nil {
		return false, err
	}

	key := GenerateSessionKey()
	rec := domain.SessionRecord{
		UserID:       userID,
		SessionKey:   key,
		LastActivity: time.Now().UTC(),
		Stats:        zeroStats(),
	}
	if err := d.putRecord(ctx, rec); err != nil {
		return false, err
	}
	if err := d.setCurrentKey(key); err != nil {
		return false, err
	}

	d.log.Info("session imported", "user_id", userID)
	return true, nil
}

func zeroStats() domain.StudyStats {
	return domain.StudyStats{StudyDays: []string{}}
}

func (d *Directory) putRecord(ctx context.Context, rec domain.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	return d.blocks.Put(ctx, blockstore.Sessions, rec.SessionKey, data)
}

func (d *Directory) getRecord(ctx context.Context, key string) (domain.SessionRecord, bool, error) {
	data, ok, err := d.blocks.Get(ctx, blockstore.Sessions, key)
	if err != nil || !ok {
		return domain.SessionRecord{}, false, err
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.SessionRecord{}, false, fmt.Errorf("failed to decode session record %s: %w", key, err)
	}
	return rec, true, nil
}

func (d *Directory) setCurrentKey(key string) error {
	if err := atomic.WriteFile(d.statePath, bytes.NewReader([]byte(key))); err != nil {
		return fmt.Errorf("%w: save session state: %v", blockstore.ErrPersistence, err)
	}
	return nil
}
