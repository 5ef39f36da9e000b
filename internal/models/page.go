package models

import "time"

// Page - узел графа истории.
type Page struct {
	ID        int64     `json:"id" db:"id"`
	StoryID   int64     `json:"story_id" db:"story_id"`
	IsEnding  bool      `json:"is_ending" db:"is_ending"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Choice - направленное ребро графа: со страницы на целевую страницу.
// TargetPageID == nil означает тупик (неявная концовка).
type Choice struct {
	ID           int64     `json:"id" db:"id"`
	PageID       int64     `json:"page_id" db:"page_id"`
	TargetPageID *int64    `json:"target_page_id" db:"target_page_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
