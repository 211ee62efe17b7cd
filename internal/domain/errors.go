package domain

import "errors"

// Common errors
var (
	ErrNotFound  = errors.New("record not found")
	ErrForbidden = errors.New("access forbidden: you don't own this resource")
)

// Auth errors
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("an account with this email already exists")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrRateLimited     = errors.New("too many requests, try again later")
)

// File errors
var (
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
	ErrEmptyFile    = errors.New("file is empty")
	ErrInvalidName  = errors.New("file name is required")
)
