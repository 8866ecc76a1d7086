package models

import "time"

type User struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // never exposed

	// optional Telegram delivery channel for verification codes
	TelegramChatID int64 `json:"telegram_chat_id,omitempty"`

	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CodeRequest struct {
	Username string `json:"username" binding:"required"`
	Code     string `json:"code" binding:"required"`
}
