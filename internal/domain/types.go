package domain

import "time"

// User is the single account row of a per-user database. Exactly one exists
// per database; it is created with the database and only disappears when the
// whole database is discarded.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Deck groups themes and flashcards. AuthorID always equals the owning
// database's user id and is immutable after creation.
type Deck struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CoverImage  string    `json:"coverImage,omitempty"`
	AuthorID    string    `json:"authorId"`
	IsPublic    bool      `json:"isPublic"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Theme is an optional grouping inside a deck. Deleting a deck deletes its
// themes; deleting a theme detaches its flashcards instead of deleting them.
type Theme struct {
	ID          string    `json:"id"`
	DeckID      string    `json:"deckId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CoverImage  string    `json:"coverImage,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CardSide is one face of a flashcard. Image and Audio carry inline
// base64-encoded media payloads, not references.
type CardSide struct {
	Text           string `json:"text"`
	Image          string `json:"image,omitempty"`
	Audio          string `json:"audio,omitempty"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}

// Flashcard belongs to a deck and optionally to a theme within it.
type Flashcard struct {
	ID        string    `json:"id"`
	DeckID    string    `json:"deckId"`
	ThemeID   string    `json:"themeId,omitempty"`
	Front     CardSide  `json:"front"`
	Back      CardSide  `json:"back"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserSettings is the single preferences row created alongside the user.
type UserSettings struct {
	UserID          string `json:"userId"`
	ThemePreference string `json:"themePreference"`
	Language        string `json:"language"`
	StudyReminders  bool   `json:"studyReminders"`
	SettingsJSON    string `json:"settingsJson,omitempty"`
}
