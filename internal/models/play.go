package models

import "github.com/google/uuid"

// RenderedChoice - вариант выбора, собранный для показа читателю.
// Текст берется из Content Store; отсутствующий документ дает пустую строку.
type RenderedChoice struct {
	ID           int64  `json:"id"`
	Text         string `json:"text"`
	TargetPageID *int64 `json:"-"` // читателю не показываем, куда ведет выбор
}

// RenderedPage - страница, собранная из обоих хранилищ:
// структура из PostgreSQL, контент из MongoDB.
type RenderedPage struct {
	ID       int64            `json:"id"`
	IsEnding bool             `json:"is_ending"`
	Text     string           `json:"text"`
	Images   []string         `json:"images"`
	Choices  []RenderedChoice `json:"choices"`
}

// PlayState - результат шага прохождения.
// Page == nil возможен только при Ended == true (тупиковый выбор).
type PlayState struct {
	SessionID    uuid.UUID     `json:"session_id"`
	StoryID      int64         `json:"story_id"`
	Ended        bool          `json:"ended"`
	EndingPageID *int64        `json:"ending_page_id,omitempty"`
	Page         *RenderedPage `json:"page,omitempty"`
}

// PageWithContent - страница с контентом для авторского интерфейса.
type PageWithContent struct {
	Page
	Text   string   `json:"text"`
	Images []string `json:"images"`
}

// ChoiceWithText - выбор с текстом для авторского интерфейса.
type ChoiceWithText struct {
	Choice
	Text string `json:"text"`
}

// ChoicePatch - частичное обновление выбора.
// SetTarget отличает "переназначить цель (возможно в nil)" от "цель не менять".
type ChoicePatch struct {
	SetTarget    bool
	TargetPageID *int64
	Text         *string
}
