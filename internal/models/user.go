package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username string    `gorm:"unique;not null" json:"username"`
	Email    string    `gorm:"unique;not null" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Bio      string    `json:"bio"`
	Avatar   string    `json:"avatar"` // Stores avatar ID (1-6) or URL
	Phone    string    `json:"-"`      // Optional, for SMS notifications

	// Karma accumulates the score deltas of votes received on this user's
	// content; the rank shown in profiles is derived from it.
	Karma int `gorm:"default:0" json:"karma"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"` // Optional avatar selection
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message"`
}
