package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification model - written when a vote or reaction is added to someone
// else's content. Only the Added action notifies; toggles and switches don't.
type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index" json:"recipient_id"`
	ActorID     uuid.UUID  `gorm:"type:uuid;not null" json:"actor_id"`
	EntityType  EntityType `gorm:"size:20;not null" json:"entity_type"`
	EntityID    uuid.UUID  `gorm:"type:uuid;not null" json:"entity_id"`
	Kind        string     `gorm:"size:20;not null" json:"kind"` // "vote" or "reaction"
	Message     string     `json:"message"`
	Read        bool       `gorm:"default:false" json:"read"`
	CreatedAt   time.Time  `json:"created_at"`
}
