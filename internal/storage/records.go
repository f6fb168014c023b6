package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/apruvost/memodeck/internal/domain"
)

// Row↔record encoding rules:
//   - booleans are 0/1 integers
//   - tags is a JSON-encoded text array; absent or empty decodes to []
//   - optional text (media, avatar, bio, theme_id) is NULL when unset and
//     maps to the empty string on the record side
//   - timestamps are RFC 3339 text in UTC

const timeLayout = time.RFC3339Nano

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullIfEmpty maps the record-side zero value to a NULL column.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func textOrEmpty(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeTags(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(ns.String), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, name, email, avatar, bio, created_at`

func scanUser(sc rowScanner) (domain.User, error) {
	var (
		u                  domain.User
		email, avatar, bio sql.NullString
		createdAt          string
	)
	if err := sc.Scan(&u.ID, &u.Name, &email, &avatar, &bio, &createdAt); err != nil {
		return domain.User{}, err
	}
	u.Email = textOrEmpty(email)
	u.Avatar = textOrEmpty(avatar)
	u.Bio = textOrEmpty(bio)
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

const deckColumns = `id, title, description, cover_image, author_id, is_public, tags, created_at, updated_at`

func scanDeck(sc rowScanner) (domain.Deck, error) {
	var (
		d                       domain.Deck
		description, coverImage sql.NullString
		tags                    sql.NullString
		isPublic                int
		createdAt, updatedAt    string
	)
	err := sc.Scan(&d.ID, &d.Title, &description, &coverImage, &d.AuthorID,
		&isPublic, &tags, &createdAt, &updatedAt)
	if err != nil {
		return domain.Deck{}, err
	}
	d.Description = textOrEmpty(description)
	d.CoverImage = textOrEmpty(coverImage)
	d.IsPublic = isPublic != 0
	d.Tags = decodeTags(tags)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return d, nil
}

const themeColumns = `id, deck_id, title, description, cover_image, created_at, updated_at`

func scanTheme(sc rowScanner) (domain.Theme, error) {
	var (
		t                       domain.Theme
		description, coverImage sql.NullString
		createdAt, updatedAt    string
	)
	err := sc.Scan(&t.ID, &t.DeckID, &t.Title, &description, &coverImage,
		&createdAt, &updatedAt)
	if err != nil {
		return domain.Theme{}, err
	}
	t.Description = textOrEmpty(description)
	t.CoverImage = textOrEmpty(coverImage)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

const flashcardColumns = `id, deck_id, theme_id,
	front_text, front_image, front_audio, front_additional_info,
	back_text, back_image, back_audio, back_additional_info,
	created_at, updated_at`

func scanFlashcard(sc rowScanner) (domain.Flashcard, error) {
	var (
		f                                  domain.Flashcard
		themeID                            sql.NullString
		frontImage, frontAudio, frontInfo  sql.NullString
		backImage, backAudio, backInfo     sql.NullString
		createdAt, updatedAt               string
	)
	err := sc.Scan(&f.ID, &f.DeckID, &themeID,
		&f.Front.Text, &frontImage, &frontAudio, &frontInfo,
		&f.Back.Text, &backImage, &backAudio, &backInfo,
		&createdAt, &updatedAt)
	if err != nil {
		return domain.Flashcard{}, err
	}
	f.ThemeID = textOrEmpty(themeID)
	f.Front.Image = textOrEmpty(frontImage)
	f.Front.Audio = textOrEmpty(frontAudio)
	f.Front.AdditionalInfo = textOrEmpty(frontInfo)
	f.Back.Image = textOrEmpty(backImage)
	f.Back.Audio = textOrEmpty(backAudio)
	f.Back.AdditionalInfo = textOrEmpty(backInfo)
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return f, nil
}

const settingsColumns = `user_id, theme_preference, language, study_reminders, settings_json`

func scanSettings(sc rowScanner) (domain.UserSettings, error) {
	var (
		s              domain.UserSettings
		settingsJSON   sql.NullString
		studyReminders int
	)
	err := sc.Scan(&s.UserID, &s.ThemePreference, &s.Language,
		&studyReminders, &settingsJSON)
	if err != nil {
		return domain.UserSettings{}, err
	}
	s.StudyReminders = studyReminders != 0
	s.SettingsJSON = textOrEmpty(settingsJSON)
	return s, nil
}
