package domain

import "time"

// StudyStats accumulates study activity for a session. AverageScore is
// derived: round(correct/(correct+incorrect)*100), left unchanged while no
// answer has been recorded.
type StudyStats struct {
	TotalStudyTime   int      `json:"totalStudyTime"`
	StudySessions    int      `json:"studySessions"`
	CardsReviewed    int      `json:"cardsReviewed"`
	CorrectAnswers   int      `json:"correctAnswers"`
	IncorrectAnswers int      `json:"incorrectAnswers"`
	StreakDays       int      `json:"streakDays"`
	LastStudyDate    string   `json:"lastStudyDate,omitempty"`
	StudyDays        []string `json:"studyDays"`
	AverageScore     int      `json:"averageScore"`
}

// SessionRecord maps a session key to a user id. It lives in the durable
// block store, outside the relational database it points at.
type SessionRecord struct {
	UserID       string     `json:"userId"`
	SessionKey   string     `json:"sessionKey"`
	LastActivity time.Time  `json:"lastActivity"`
	Stats        StudyStats `json:"stats"`
}

// StatsPatch is a sparse update to StudyStats. Set fields replace the stored
// value; nil fields are left alone.
type StatsPatch struct {
	TotalStudyTime   *int     `json:"totalStudyTime,omitempty"`
	StudySessions    *int     `json:"studySessions,omitempty"`
	CardsReviewed    *int     `json:"cardsReviewed,omitempty"`
	CorrectAnswers   *int     `json:"correctAnswers,omitempty"`
	IncorrectAnswers *int     `json:"incorrectAnswers,omitempty"`
	StreakDays       *int     `json:"streakDays,omitempty"`
	LastStudyDate    *string  `json:"lastStudyDate,omitempty"`
	StudyDays        []string `json:"studyDays,omitempty"`
}
