package models

import "github.com/golang-jwt/jwt/v5"

// Claims - JWT claims пользователя.
type Claims struct {
	UserID               uint64   `json:"user_id"`
	Roles                []string `json:"roles"`
	jwt.RegisteredClaims          // Встраиваем стандартные поля: Issuer, Subject, ExpiresAt, IssuedAt, ID (JTI)
}

// TokenDetails содержит пару access/refresh токенов и их метаданные.
type TokenDetails struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccessUUID   string `json:"-"`
	RefreshUUID  string `json:"-"`
	AtExpires    int64  `json:"-"`
	RtExpires    int64  `json:"-"`
}
