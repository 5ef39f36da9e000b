package models

import "errors"

// Стандартные ошибки приложения
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found") // General not found

	// User & Authentication Errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this username already exists")
	ErrEmailAlreadyExists = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserBanned         = errors.New("user is banned")
	ErrUnauthorized       = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden          = errors.New("forbidden")    // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenNotFound  = errors.New("token not found in storage")

	// Story Graph Errors
	ErrStoryNotPlayable  = errors.New("story is not published or has no start page")
	ErrNoStartPage       = errors.New("story has no start page defined")
	ErrTargetPageInvalid = errors.New("target page must belong to the same story")

	// Play Session Errors
	ErrSessionEnded  = errors.New("play session already ended")
	ErrInvalidChoice = errors.New("choice does not belong to the session's story")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
