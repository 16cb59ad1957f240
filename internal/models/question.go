package models

import (
	"time"

	"github.com/google/uuid"
)

type Question struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title    string    `gorm:"not null" json:"title"`
	Body     string    `json:"body"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID" json:"author"`

	// Score is the running net vote counter. It is only ever mutated through
	// atomic score = score + delta updates, never read-modify-write.
	Score int `gorm:"default:0" json:"score"`

	Answers   int       `gorm:"default:0" json:"answers"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateQuestionRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Answer struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	Body       string    `gorm:"not null" json:"body"`
	AuthorID   uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Author     User      `gorm:"foreignKey:AuthorID" json:"author"`
	Score      int       `gorm:"default:0" json:"score"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateAnswerRequest struct {
	Body string `json:"body"`
}
