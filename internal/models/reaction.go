package models

import (
	"time"

	"github.com/google/uuid"
)

// ReactionType is the richer, non-binary analog of a vote direction.
type ReactionType string

const (
	ReactionLike  ReactionType = "like"
	ReactionLove  ReactionType = "love"
	ReactionLaugh ReactionType = "laugh"
	ReactionWow   ReactionType = "wow"
	ReactionSad   ReactionType = "sad"
	ReactionAngry ReactionType = "angry"
)

// ReactionTypes returns all reaction types in declaration order. Summaries are
// emitted in this order; popularity ordering is left to callers.
func ReactionTypes() []ReactionType {
	return []ReactionType{ReactionLike, ReactionLove, ReactionLaugh, ReactionWow, ReactionSad, ReactionAngry}
}

// Valid reports whether rt is a known reaction type.
func (rt ReactionType) Valid() bool {
	for _, t := range ReactionTypes() {
		if rt == t {
			return true
		}
	}
	return false
}

// Reaction model - same lifecycle as Vote, keyed per (entity, user), but with a
// named type instead of an up/down direction and no score counter behind it.
type Reaction struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType EntityType   `gorm:"size:20;not null;uniqueIndex:idx_reactions_entity_user" json:"entity_type"`
	EntityID   uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_reactions_entity_user" json:"entity_id"`
	UserID     uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_reactions_entity_user" json:"user_id"`
	Type       ReactionType `gorm:"size:20;not null" json:"type"`
	Status     VoteStatus   `gorm:"size:10;not null;default:active" json:"status"`
	DeletedAt  *time.Time   `json:"deleted_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	ModifiedAt time.Time    `json:"modified_at"`
}

// NewReaction creates an active reaction.
func NewReaction(entityType EntityType, entityID, userID uuid.UUID, rt ReactionType) (*Reaction, error) {
	if entityID == uuid.Nil || userID == uuid.Nil || !entityType.Valid() || !rt.Valid() {
		return nil, ErrValidation
	}
	now := time.Now().UTC()
	return &Reaction{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Type:       rt,
		Status:     VoteActive,
		CreatedAt:  now,
		ModifiedAt: now,
	}, nil
}

// IsDeleted reports whether the reaction is soft-deleted.
func (r *Reaction) IsDeleted() bool {
	return r.Status == VoteDeleted
}

// ChangeType switches an active reaction to a different type.
func (r *Reaction) ChangeType(rt ReactionType) error {
	if r.IsDeleted() {
		return ErrInvalidState
	}
	if !rt.Valid() {
		return ErrValidation
	}
	r.Type = rt
	r.ModifiedAt = time.Now().UTC()
	return nil
}

// Remove soft-deletes an active reaction.
func (r *Reaction) Remove() error {
	if r.IsDeleted() {
		return ErrInvalidState
	}
	now := time.Now().UTC()
	r.Status = VoteDeleted
	r.DeletedAt = &now
	r.ModifiedAt = now
	return nil
}

// Resurrect reactivates a soft-deleted reaction with the given type.
func (r *Reaction) Resurrect(rt ReactionType) error {
	if !r.IsDeleted() {
		return ErrInvalidState
	}
	if !rt.Valid() {
		return ErrValidation
	}
	r.Status = VoteActive
	r.DeletedAt = nil
	r.Type = rt
	r.ModifiedAt = time.Now().UTC()
	return nil
}
