package models

import "time"

// StoryStatus - статус истории.
type StoryStatus string

const (
	StatusDraft     StoryStatus = "draft"
	StatusPublished StoryStatus = "published"
)

// Story - структурная запись истории (граф страниц принадлежит ей).
type Story struct {
	ID          int64       `json:"id" db:"id"`
	AuthorID    uint64      `json:"author_id" db:"author_id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	Tags        string      `json:"tags" db:"tags"`
	Status      StoryStatus `json:"status" db:"status"`
	StartPageID *int64      `json:"start_page_id" db:"start_page_id"`
	IsSuspended bool        `json:"is_suspended" db:"is_suspended"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// StoryWithMeta - история с именем автора и числом прохождений для списков.
type StoryWithMeta struct {
	Story
	AuthorName string `json:"author_name" db:"author_name"`
	PlayCount  int64  `json:"play_count" db:"play_count"`
}

// StoryPatch - частичное обновление истории.
// Нулевой указатель означает "поле не менять".
type StoryPatch struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Tags        *string      `json:"tags"`
	Status      *StoryStatus `json:"status"`
	StartPageID *int64       `json:"start_page_id"`
}

// IsEmpty возвращает true, если патч не содержит ни одного поля.
func (p StoryPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Tags == nil && p.Status == nil && p.StartPageID == nil
}
