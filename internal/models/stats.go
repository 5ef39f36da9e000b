package models

// StoryStatistics - агрегированная статистика по одной истории.
type StoryStatistics struct {
	StoryID     int64       `json:"story_id" db:"story_id"`
	Title       string      `json:"title" db:"title"`
	Status      StoryStatus `json:"status" db:"status"`
	IsSuspended bool        `json:"is_suspended" db:"is_suspended"`
	AuthorName  string      `json:"author_name" db:"author_name"`
	PlayCount   int64       `json:"play_count" db:"play_count"`
	PageCount   int64       `json:"page_count" db:"page_count"`
	ChoiceCount int64       `json:"choice_count" db:"choice_count"`
}

// GlobalStatistics - сводные счетчики по всей платформе.
type GlobalStatistics struct {
	TotalUsers       int64 `json:"total_users" db:"total_users"`
	TotalStories     int64 `json:"total_stories" db:"total_stories"`
	PublishedStories int64 `json:"published_stories" db:"published_stories"`
	TotalSessions    int64 `json:"total_sessions" db:"total_sessions"`
	TotalPages       int64 `json:"total_pages" db:"total_pages"`
}
