package domain

// Create inputs carry the caller-supplied fields of a new record. Identifiers
// and timestamps are assigned by the store at insert time.

// NewDeck describes a deck to create.
type NewDeck struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	CoverImage  string   `json:"coverImage"`
	AuthorID    string   `json:"authorId" validate:"required"`
	IsPublic    bool     `json:"isPublic"`
	Tags        []string `json:"tags"`
}

// NewTheme describes a theme to create under an existing deck.
type NewTheme struct {
	DeckID      string `json:"deckId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	CoverImage  string `json:"coverImage"`
}

// NewFlashcard describes a flashcard to create. ThemeID may be empty.
type NewFlashcard struct {
	DeckID  string   `json:"deckId" validate:"required"`
	ThemeID string   `json:"themeId"`
	Front   CardSide `json:"front" validate:"required"`
	Back    CardSide `json:"back" validate:"required"`
}
