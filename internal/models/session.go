package models

import (
	"time"

	"github.com/google/uuid"
)

// GameSession - одно прохождение истории читателем.
// Сессия открыта, пока EndedAt == nil; закрытая сессия терминальна.
type GameSession struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uint64     `json:"user_id" db:"user_id"`
	StoryID      int64      `json:"story_id" db:"story_id"`
	EndingPageID *int64     `json:"ending_page_id" db:"ending_page_id"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	EndedAt      *time.Time `json:"ended_at" db:"ended_at"`
}

// IsOpen возвращает true, если сессия еще не завершена.
func (s *GameSession) IsOpen() bool {
	return s.EndedAt == nil
}

// SessionWithStory - сессия с данными истории для списка "мои прохождения".
type SessionWithStory struct {
	GameSession
	StoryTitle string `json:"story_title" db:"story_title"`
	AuthorName string `json:"author_name" db:"author_name"`
}
