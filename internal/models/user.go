package models

import "time"

// User - учетная запись автора или читателя.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	IsBanned     bool      `json:"is_banned"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserWithCounts - пользователь со счетчиками для админки.
type UserWithCounts struct {
	User
	StoryCount   int64 `json:"story_count"`
	SessionCount int64 `json:"session_count"`
}
