package models

import "time"

// PageContent - свободный текст и изображения страницы (Content Store).
// Отсутствующий документ эквивалентен пустому тексту и пустому списку изображений.
type PageContent struct {
	PageID    int64     `bson:"page_id" json:"page_id"`
	Text      string    `bson:"text" json:"text"`
	Images    []string  `bson:"images" json:"images"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ChoiceContent - текст варианта выбора (Content Store).
type ChoiceContent struct {
	ChoiceID  int64     `bson:"choice_id" json:"choice_id"`
	Text      string    `bson:"text" json:"text"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// StoryContent - произвольные метаданные истории (Content Store).
type StoryContent struct {
	StoryID   int64                  `bson:"story_id" json:"story_id"`
	Content   map[string]interface{} `bson:"content" json:"content"`
	UpdatedAt time.Time              `bson:"updated_at" json:"updated_at"`
}
