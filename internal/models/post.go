package models

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Body     string    `gorm:"not null" json:"body"`
	Image    string    `json:"image"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID" json:"author"`
	Score    int       `gorm:"default:0" json:"score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreatePostRequest struct {
	Body  string `json:"body"`
	Image string `json:"image"`
}
