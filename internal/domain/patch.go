package domain

// Patch types describe sparse updates: only non-nil fields are written.
// An all-nil patch is a no-op that returns the current record unchanged and
// does not bump updated_at.

// UserPatch updates the account row.
type UserPatch struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
	Bio    *string `json:"bio,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Avatar == nil && p.Bio == nil
}

// DeckPatch updates a deck. AuthorID is deliberately absent: deck ownership
// is immutable.
type DeckPatch struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	CoverImage  *string  `json:"coverImage,omitempty"`
	IsPublic    *bool    `json:"isPublic,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// IsEmpty reports whether no field is set. A non-nil empty Tags slice counts
// as "set tags to none".
func (p DeckPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.CoverImage == nil &&
		p.IsPublic == nil && p.Tags == nil
}

// ThemePatch updates a theme.
type ThemePatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	CoverImage  *string `json:"coverImage,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p ThemePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.CoverImage == nil
}

// SidePatch updates one face of a flashcard.
type SidePatch struct {
	Text           *string `json:"text,omitempty"`
	Image          *string `json:"image,omitempty"`
	Audio          *string `json:"audio,omitempty"`
	AdditionalInfo *string `json:"additionalInfo,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p SidePatch) IsEmpty() bool {
	return p.Text == nil && p.Image == nil && p.Audio == nil && p.AdditionalInfo == nil
}

// FlashcardPatch updates a flashcard. Setting ThemeID to the empty string
// detaches the card from its theme.
type FlashcardPatch struct {
	ThemeID *string   `json:"themeId,omitempty"`
	Front   SidePatch `json:"front,omitempty"`
	Back    SidePatch `json:"back,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p FlashcardPatch) IsEmpty() bool {
	return p.ThemeID == nil && p.Front.IsEmpty() && p.Back.IsEmpty()
}

// UserSettingsPatch updates the preferences row.
type UserSettingsPatch struct {
	ThemePreference *string `json:"themePreference,omitempty"`
	Language        *string `json:"language,omitempty"`
	StudyReminders  *bool   `json:"studyReminders,omitempty"`
	SettingsJSON    *string `json:"settingsJson,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p UserSettingsPatch) IsEmpty() bool {
	return p.ThemePreference == nil && p.Language == nil &&
		p.StudyReminders == nil && p.SettingsJSON == nil
}
